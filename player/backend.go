package player

import (
	"fmt"
	"os/exec"
	"sort"

	"github.com/samber/lo"
)

// Backend describes a decoder implementation selectable through player.backend.
type Backend struct {
	// Binary is the executable the backend needs on PATH, if any.
	Binary string
	New    func() Decoder
}

// Backends maps backend names to their implementations.
var Backends = map[string]Backend{
	"mpv": {
		Binary: "mpv",
		New:    func() Decoder { return NewMPV("mpv") },
	},
}

// BackendNames returns the registered backend names in order.
func BackendNames() []string {
	names := lo.Keys(Backends)
	sort.Strings(names)
	return names
}

// NewDecoder constructs a decoder for the named backend.
func NewDecoder(name string) (Decoder, error) {
	backend, ok := Backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown player backend %q, available: %v", name, BackendNames())
	}
	return backend.New(), nil
}

// Available reports whether the named backend's executable can be found.
func Available(name string) (path string, ok bool) {
	backend, exists := Backends[name]
	if !exists {
		return "", false
	}
	if backend.Binary == "" {
		return "", true
	}

	path, err := exec.LookPath(backend.Binary)
	return path, err == nil
}
