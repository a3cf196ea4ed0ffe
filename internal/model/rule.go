// Package model defines the core value types shared across the build
// orchestrator: rules loaded from Remakefile and handed between the parser,
// the matcher, and the scheduler.
package model

// Rule is a single declaration from Remakefile, either as written (targets
// and deps still containing a literal "%") or after a generic rule has been
// matched and its placeholder substituted.
type Rule struct {
	Generic bool
	Targets []string
	Deps    []string
	Script  string
}

// Empty reports whether the rule is the zero value, used by the matcher to
// signal "no rule found" without a separate ok return.
func (r Rule) Empty() bool {
	return len(r.Targets) == 0
}

// Clone returns a rule with its own backing slices, so that callers can
// mutate the copy (e.g. during placeholder substitution) without aliasing
// the rule stored in the rule set.
func (r Rule) Clone() Rule {
	targets := make([]string, len(r.Targets))
	copy(targets, r.Targets)
	deps := make([]string, len(r.Deps))
	copy(deps, r.Deps)
	return Rule{Generic: r.Generic, Targets: targets, Deps: deps, Script: r.Script}
}
