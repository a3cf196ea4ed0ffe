// Package rules parses a Remakefile into an ordered list of build rules.
package rules

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/msageha/remake/internal/depstore"
	"github.com/msageha/remake/internal/lexer"
	"github.com/msageha/remake/internal/model"
)

// ErrNotFound is returned by Load when the Remakefile does not exist.
var ErrNotFound = errors.New("no Remakefile found")

// SyntaxError reports the line at which Remakefile parsing failed.
type SyntaxError struct {
	Line int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d", e.Line)
}

type parseState int

const (
	stateBof parseState = iota
	stateTgt
	stateDep
	stateScript
)

// Load parses path (a Remakefile) into its ordered rule list. As a side
// effect, the static dependencies of non-generic rules are recorded into
// deps: a rule's plain (non-placeholder) deps are known without running
// anything, so there is no reason to wait for a dynamic dependency request
// to learn about them.
func Load(path string, deps *depstore.Store) ([]model.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var out []model.Rule
	var current model.Rule
	var buf strings.Builder
	state := stateBof
	line := 1

	finish := func() {
		current.Script = buf.String()
		out = append(out, current)
		buf.Reset()
		current = model.Rule{}
	}

	for {
		c, readErr := r.ReadByte()
		if readErr != nil {
			break
		}

		switch {
		case state == stateScript && c == '\t':
			for {
				b, err := r.ReadByte()
				if err != nil {
					break
				}
				if b == '\n' {
					_ = r.UnreadByte()
					break
				}
				buf.WriteByte(b)
			}

		case state == stateScript && (c == '\r' || c == '\n'):
			buf.WriteByte(c)
			if c == '\n' {
				line++
			}

		case state == stateDep && c == '\n':
			line++
			state = stateScript

		case state == stateTgt && c == ':':
			state = stateDep
			lexer.SkipSpaces(r)

		default:
			if state == stateScript {
				finish()
			}
			_ = r.UnreadByte()
			word := lexer.ReadWord(r)
			lexer.SkipSpaces(r)
			if word == "" {
				return nil, &SyntaxError{Line: line}
			}
			if strings.Contains(word, "%") {
				if (state == stateTgt || state == stateDep) && !current.Generic {
					return nil, &SyntaxError{Line: line}
				}
				current.Generic = true
			} else if (state == stateTgt || state == stateDep) && current.Generic {
				return nil, &SyntaxError{Line: line}
			}
			if state != stateDep {
				current.Targets = append(current.Targets, word)
				state = stateTgt
				continue
			}
			current.Deps = append(current.Deps, word)
			if current.Generic {
				continue
			}
			for _, t := range current.Targets {
				deps.Add(t, word)
			}
		}
	}

	if state != stateBof {
		finish()
	}

	return out, nil
}
