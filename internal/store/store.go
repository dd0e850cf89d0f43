// Package store keeps the current set of source records in memory.
package store

import (
	"slices"
	"sync"
	"time"

	"coursecal/internal/model"
)

// Snapshot is an immutable view of all records at one version.
type Snapshot struct {
	Version   uint64
	UpdatedAt time.Time
	Classes   []model.ClassSession
	Exams     []model.ExamWindow
}

// Courses lists the distinct course titles in first-seen order.
func (s Snapshot) Courses() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(title string) {
		if title == "" {
			return
		}
		if _, ok := seen[title]; ok {
			return
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}
	for _, c := range s.Classes {
		add(c.CourseTitle)
	}
	for _, x := range s.Exams {
		add(x.CourseTitle)
	}
	return out
}

// Store holds the latest snapshot. Replace swaps it wholesale; there are no
// partial updates.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func New() *Store {
	return &Store{}
}

// Replace installs a new record set and bumps the version.
func (s *Store) Replace(classes []model.ClassSession, exams []model.ExamWindow) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = Snapshot{
		Version:   s.snap.Version + 1,
		UpdatedAt: time.Now(),
		Classes:   slices.Clone(classes),
		Exams:     slices.Clone(exams),
	}
	return s.snap.Version
}

// Snapshot returns the current records. Slices are shared with the store and
// must not be modified.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Version returns the current version; zero means never loaded.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Version
}
