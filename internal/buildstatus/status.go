// Package buildstatus computes and memoizes the build status of targets:
// whether a target needs to be (re)built, is currently running, or has
// already been handled this session.
package buildstatus

import (
	"os"
	"time"
)

// Status is the build status of a target.
type Status int

const (
	// Uptodate means the target exists and is newer than every dependency.
	Uptodate Status = iota
	// Todo means the target is missing, or is older than some dependency.
	Todo
	// Running means a job is currently building the target.
	Running
	// Remade means the target was successfully rebuilt this session.
	Remade
	// Failed means the build of the target failed this session.
	Failed
)

// Info is the memoized status of a target together with its last-modified
// time, valid only when Status is Uptodate.
type Info struct {
	Status Status
	Last   time.Time
}

// DepsReader supplies a target's known dependencies. *depstore.Store
// satisfies this interface.
type DepsReader interface {
	Get(target string) []string
}

// StatFunc abstracts os.Stat so tests can stub the filesystem.
type StatFunc func(name string) (os.FileInfo, error)

// Store memoizes target statuses. It has a single owner (the scheduler
// goroutine) and does no internal locking.
type Store struct {
	m    map[string]Info
	deps DepsReader
	stat StatFunc
}

// New returns a Store that resolves dependencies via deps and stats files
// with os.Stat.
func New(deps DepsReader) *Store {
	return &Store{m: make(map[string]Info), deps: deps, stat: os.Stat}
}

// NewWithStat is like New but lets tests substitute the stat function.
func NewWithStat(deps DepsReader, stat StatFunc) *Store {
	return &Store{m: make(map[string]Info), deps: deps, stat: stat}
}

// Get returns the memoized status of target, computing and recording it on
// first access.
//
// Before recursing into target's dependencies, a zero-value placeholder is
// recorded for target so that a dependency cycle resolves to Uptodate with
// a zero timestamp instead of recursing forever; the dependency graph is
// assumed to be acyclic in well-formed use, and this is only a safety net.
func (s *Store) Get(target string) Info {
	if v, ok := s.m[target]; ok {
		return v
	}
	s.m[target] = Info{}

	fi, err := s.stat(target)
	if err != nil {
		return s.set(target, Info{Status: Todo})
	}

	for _, dep := range s.deps.Get(target) {
		depInfo := s.Get(dep)
		if depInfo.Status != Uptodate || depInfo.Last.After(fi.ModTime()) {
			return s.set(target, Info{Status: Todo})
		}
	}

	return s.set(target, Info{Status: Uptodate, Last: fi.ModTime()})
}

// Set records target's status directly, bypassing computation. Used by the
// scheduler to mark a target Running, Remade, or Failed once a job starts
// or completes.
func (s *Store) Set(target string, status Status) {
	s.m[target] = Info{Status: status}
}

func (s *Store) set(target string, info Info) Info {
	s.m[target] = info
	return info
}
