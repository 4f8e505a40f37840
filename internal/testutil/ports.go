package testutil

import (
	"fmt"
	"net"
	"sync"
	"testing"
)

var (
	portMu    sync.Mutex
	usedPorts = make(map[int]struct{})
)

// FreeAddr returns a loopback "127.0.0.1:port" address that was free a moment
// ago and has not been handed out before in this test binary.
func FreeAddr(t *testing.T) string {
	t.Helper()
	portMu.Lock()
	defer portMu.Unlock()

	for range 20 {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to reserve a port: %v", err)
		}
		port := lis.Addr().(*net.TCPAddr).Port
		if err := lis.Close(); err != nil {
			t.Fatalf("failed to release port %d: %v", port, err)
		}
		if _, taken := usedPorts[port]; taken {
			continue
		}
		usedPorts[port] = struct{}{}
		return fmt.Sprintf("127.0.0.1:%d", port)
	}
	t.Fatal("no unused port found")
	return ""
}
