package agents

import "os/exec"

// LookPathFunc finds an executable by name. exec.LookPath satisfies it.
type LookPathFunc func(file string) (string, error)

// Detected is a backend whose executable was found.
type Detected struct {
	Config *Config
	Binary string // candidate name that matched
	Path   string // absolute location
}

// Detect checks each backend's binaries in registry order and returns the
// backends with at least one executable on PATH. The first matching binary
// wins; a backend appears at most once.
func (r *Registry) Detect(lookPath LookPathFunc) []Detected {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	var found []Detected
	for _, a := range r.agents {
		for _, bin := range a.Binaries {
			path, err := lookPath(bin)
			if err != nil {
				continue
			}
			found = append(found, Detected{Config: a, Binary: bin, Path: path})
			break
		}
	}
	return found
}
