// Package identity provides the process-wide identity server: configured
// properties and the working, project and install locations of the gateway.
package identity

import (
	"maps"
	"os"
	"strings"
	"sync"
)

// Locations are the directories the gateway runs from.
type Locations struct {
	Working string
	Project string
	Install string
}

// Server answers property and location lookups. Properties are replaced as a
// whole on reload.
type Server struct {
	mu         sync.RWMutex
	properties map[string]any
	locations  Locations
	lookupEnv  func(string) (string, bool)
}

// NewServer creates an identity server. Empty locations default to the current
// directory.
func NewServer(locations Locations, properties map[string]any) *Server {
	s := &Server{lookupEnv: os.LookupEnv}
	s.Update(locations, properties)
	return s
}

// Update replaces locations and properties.
func (s *Server) Update(locations Locations, properties map[string]any) {
	if locations.Working == "" {
		if wd, err := os.Getwd(); err == nil {
			locations.Working = wd
		}
	}
	if locations.Project == "" {
		locations.Project = locations.Working
	}
	if locations.Install == "" {
		locations.Install = locations.Working
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = locations
	s.properties = maps.Clone(properties)
}

// Property resolves name from configured properties, then from the process
// environment using the name upper-cased with dots replaced by underscores.
// Returns nil when neither source has it.
func (s *Server) Property(name string) any {
	s.mu.RLock()
	v, ok := s.properties[name]
	s.mu.RUnlock()
	if ok {
		return v
	}

	envName := strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
	if env, ok := s.lookupEnv(envName); ok {
		return env
	}
	return nil
}

// Locations returns the current locations.
func (s *Server) Locations() Locations {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locations
}
