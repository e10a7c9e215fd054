package registry

import "sync/atomic"

// Snapshot holds the current project for hot reload. Readers Load once per
// compile and keep that project for the whole call; reloads Store a freshly
// built project and never mutate the old one.
type Snapshot struct {
	current atomic.Pointer[Project]
}

// NewSnapshot creates a snapshot holding p.
func NewSnapshot(p *Project) *Snapshot {
	s := &Snapshot{}
	s.current.Store(p)
	return s
}

// Load returns the current project.
func (s *Snapshot) Load() *Project { return s.current.Load() }

// Store replaces the current project.
func (s *Snapshot) Store(p *Project) { s.current.Store(p) }
