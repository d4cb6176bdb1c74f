package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module has been administratively paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutating calls into a paused module.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is a static PauseView driven by configuration.
type Pauses struct {
	paused map[string]bool
}

// NewPauses builds a PauseView from the list of paused module names.
func NewPauses(modules []string) *Pauses {
	paused := make(map[string]bool, len(modules))
	for _, m := range modules {
		paused[m] = true
	}
	return &Pauses{paused: paused}
}

// IsPaused reports whether the module is paused.
func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	return p.paused[module]
}
