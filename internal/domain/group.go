package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// LinkageGroup is a set of canvas documents kept in sync with each other
type LinkageGroup struct {
	ID           string
	Members      []string // vault-relative slash paths, unique, in link order
	LastSyncedAt time.Time
}

// NewLinkageGroup creates a group with a fresh id
func NewLinkageGroup(members []string, now time.Time) LinkageGroup {
	return LinkageGroup{
		ID:           uuid.NewString(),
		Members:      slices.Clone(members),
		LastSyncedAt: now,
	}
}

// Contains reports whether path is a member
func (g LinkageGroup) Contains(path string) bool {
	return slices.Contains(g.Members, path)
}

// Others returns every member except path, in member order
func (g LinkageGroup) Others(path string) []string {
	out := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if m != path {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a copy that shares no memory with g
func (g LinkageGroup) Clone() LinkageGroup {
	g.Members = slices.Clone(g.Members)
	return g
}

// DuplicateMember returns the first path listed twice, if any
func (g LinkageGroup) DuplicateMember() (string, bool) {
	seen := make(map[string]bool, len(g.Members))
	for _, m := range g.Members {
		if seen[m] {
			return m, true
		}
		seen[m] = true
	}
	return "", false
}
