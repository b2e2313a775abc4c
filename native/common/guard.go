package common

import (
	"errors"
	"sort"
	"sync"

	"acre/core/state"
)

var (
	ErrModulePaused  = errors.New("module paused")
	ErrAlreadyPaused = errors.New("module already paused")
	ErrNotPaused     = errors.New("module not paused")
)

type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses tracks the paused flag of every engine module. Mutations are
// journaled so a reverted operation also restores the pause state.
type Pauses struct {
	mu      sync.RWMutex
	journal *state.Journal
	paused  map[string]bool
}

// NewPauses constructs an empty pause registry bound to the supplied journal.
func NewPauses(journal *state.Journal) *Pauses {
	return &Pauses{journal: journal, paused: make(map[string]bool)}
}

// IsPaused implements PauseView.
func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused[module]
}

// Pause marks the module as paused.
func (p *Pauses) Pause(module string) error {
	return p.set(module, true)
}

// Unpause clears the paused flag of the module.
func (p *Pauses) Unpause(module string) error {
	return p.set(module, false)
}

func (p *Pauses) set(module string, paused bool) error {
	if p == nil {
		return errors.New("pauses: not initialised")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	current := p.paused[module]
	if current == paused {
		if paused {
			return ErrAlreadyPaused
		}
		return ErrNotPaused
	}
	p.journal.Record(func() {
		p.mu.Lock()
		p.paused[module] = current
		p.mu.Unlock()
	})
	p.paused[module] = paused
	return nil
}

// Paused returns the sorted list of currently paused modules.
func (p *Pauses) Paused() []string {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, 0, len(p.paused))
	for module, paused := range p.paused {
		if paused {
			out = append(out, module)
		}
	}
	sort.Strings(out)
	return out
}

// Restore sets the paused flag without journaling. It is used when rebuilding
// state from a persisted snapshot.
func (p *Pauses) Restore(module string, paused bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.paused[module] = paused
	p.mu.Unlock()
}
