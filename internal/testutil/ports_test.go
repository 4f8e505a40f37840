package testutil

import (
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeAddr(t *testing.T) {
	addr := FreeAddr(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)

	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	assert.Positive(t, n)

	lis, err := net.Listen("tcp", addr)
	require.NoError(t, err, "address should be bindable")
	require.NoError(t, lis.Close())
}

func TestFreeAddr_Unique(t *testing.T) {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
	)
	for range 10 {
		wg.Go(func() {
			addr := FreeAddr(t)
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[addr], "address %s handed out twice", addr)
			seen[addr] = true
		})
	}
	wg.Wait()
	assert.Len(t, seen, 10)
}
