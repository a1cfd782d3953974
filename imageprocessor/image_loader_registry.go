package imageprocessor

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"hotelimages/logging"
)

// ProberRegistry maintains the named metadata probers
type ProberRegistry struct {
	probers       map[string]Prober
	defaultName   string
	defaultProber Prober
	mutex         sync.RWMutex
}

// NewProberRegistry creates a registry whose fallback is the given prober
func NewProberRegistry(defaultName string, defaultProber Prober) *ProberRegistry {
	registry := &ProberRegistry{
		probers:       make(map[string]Prober),
		defaultName:   defaultName,
		defaultProber: defaultProber,
	}
	registry.RegisterProber(defaultName, defaultProber)
	return registry
}

// RegisterProber registers a prober under a name
func (r *ProberRegistry) RegisterProber(name string, p Prober) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.probers[strings.ToLower(name)] = p
}

// RegisterExiftool registers the exiftool prober when the exiftool binary is
// installed. It reports whether registration happened.
func (r *ProberRegistry) RegisterExiftool() bool {
	if !checkExiftoolCommandAvailable() {
		logging.LogInfo("exiftool not found, exiftool prober unavailable")
		return false
	}
	r.RegisterProber("exiftool", NewExiftoolProber())
	return true
}

// GetProber returns the named prober, or the default one when the name is
// empty or unknown
func (r *ProberRegistry) GetProber(name string) (Prober, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if name == "" {
		return r.defaultProber, nil
	}
	if p, ok := r.probers[strings.ToLower(name)]; ok {
		return p, nil
	}
	return r.defaultProber, fmt.Errorf("prober %q not available, using %s", name, r.defaultName)
}

// Names returns the registered prober names
func (r *ProberRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.probers))
	for name := range r.probers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkExiftoolCommandAvailable checks if exiftool command is available
func checkExiftoolCommandAvailable() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}
