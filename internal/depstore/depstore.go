// Package depstore holds the target -> dependency-set map and persists it
// to the .remake database between runs.
package depstore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/msageha/remake/internal/lexer"
)

// ErrMalformed is returned by Load when .remake cannot be parsed.
var ErrMalformed = errors.New("failed to load database")

// Store is the in-memory target -> dependency-set map. It is owned
// exclusively by the scheduler goroutine; no internal locking is done.
type Store struct {
	deps map[string]map[string]struct{}
}

// New returns an empty store.
func New() *Store {
	return &Store{deps: make(map[string]map[string]struct{})}
}

// Get returns the dependency set of target as a slice. Order is
// unspecified; callers that need determinism should sort.
func (s *Store) Get(target string) []string {
	set := s.deps[target]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	return out
}

// Add inserts dep into target's dependency set.
func (s *Store) Add(target, dep string) {
	set, ok := s.deps[target]
	if !ok {
		set = make(map[string]struct{})
		s.deps[target] = set
	}
	set[dep] = struct{}{}
}

// AddAll inserts every dep into target's dependency set.
func (s *Store) AddAll(target string, deps []string) {
	for _, d := range deps {
		s.Add(target, d)
	}
}

// Replace discards target's current dependency set and installs deps in its
// place. Used when a rule fires: "deps[t]" is reset to the rule's static
// deps before any dynamic deps are recorded during the rebuild.
func (s *Store) Replace(target string, deps []string) {
	set := make(map[string]struct{}, len(deps))
	for _, d := range deps {
		set[d] = struct{}{}
	}
	s.deps[target] = set
}

// Load reads the dependency database at path. A missing file is not an
// error and yields an empty store.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	store := New()
	r := bufio.NewReader(f)
	for {
		target := lexer.ReadWord(r)
		if target == "" {
			return store, nil
		}
		c, err := r.ReadByte()
		if err != nil || c != ':' {
			return nil, ErrMalformed
		}
		lexer.SkipSpaces(r)
		for {
			dep := lexer.ReadWord(r)
			if dep == "" {
				break
			}
			store.Add(target, dep)
			lexer.SkipSpaces(r)
		}
		lexer.SkipEOL(r)
	}
}

// Save writes the dependency database to path, one line per target with a
// non-empty dependency set. Targets and deps are escaped per Escape and
// written in sorted order for a deterministic file.
func (s *Store) Save(path string) error {
	targets := make([]string, 0, len(s.deps))
	for t, set := range s.deps {
		if len(set) > 0 {
			targets = append(targets, t)
		}
	}
	sort.Strings(targets)

	var sb strings.Builder
	for _, t := range targets {
		set := s.deps[t]
		depList := make([]string, 0, len(set))
		for d := range set {
			depList = append(depList, d)
		}
		sort.Strings(depList)

		sb.WriteString(Escape(t))
		sb.WriteString(": ")
		for _, d := range depList {
			sb.WriteString(Escape(d))
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return atomicWrite(path, []byte(sb.String()))
}

// atomicWrite writes content to path via a temp file in the same directory,
// synced and renamed into place, so a crash mid-write never leaves a
// truncated database on disk.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".remake-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

const specialChars = "\" \\$!"

// Escape returns s unchanged if it contains none of the characters that
// make the database grammar ambiguous; otherwise it returns a quoted,
// backslash-escaped form that ReadWord can recover exactly.
func Escape(s string) string {
	needsEscape := false
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specialChars, s[i]) >= 0 {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return s
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(specialChars, s[i]) >= 0 {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
