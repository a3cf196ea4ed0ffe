// Package match finds the rule that applies to a given target, including
// resolving generic (placeholder) rules against concrete filenames.
package match

import (
	"strings"

	"github.com/msageha/remake/internal/model"
)

// Find returns the rule that applies to target, or the zero Rule (see
// model.Rule.Empty) if none matches.
//
// Non-generic rules take priority over generic ones. Among generic rules,
// the one whose placeholder captures the shortest substring of target wins;
// ties are broken by declaration order (the earlier rule in the list).
func Find(rules []model.Rule, target string) model.Rule {
	bestLen := -1
	var best model.Rule
	tlen := len(target)

	for _, rule := range rules {
		for _, tgt := range rule.Targets {
			if !rule.Generic {
				if tgt == target {
					return rule
				}
				continue
			}

			pos := strings.IndexByte(tgt, '%')
			if pos < 0 {
				continue
			}
			tgtLen := len(tgt)
			if tlen < tgtLen {
				continue
			}
			capLen := tlen - (tgtLen - 1)
			if bestLen != -1 && bestLen <= capLen {
				continue
			}
			suffixLen := tgtLen - (pos + 1)
			if tgt[:pos] != target[:pos] || tgt[pos+1:] != target[tlen-suffixLen:] {
				continue
			}

			bestLen = capLen
			pattern := target[pos : pos+capLen]
			best = model.Rule{
				Script:  rule.Script,
				Targets: substitutePattern(pattern, rule.Targets),
				Deps:    substitutePattern(pattern, rule.Deps),
			}
			break
		}
	}
	return best
}

// substitutePattern replaces the single '%' placeholder in each element of
// src with pattern, leaving elements without a placeholder unchanged.
func substitutePattern(pattern string, src []string) []string {
	out := make([]string, len(src))
	for i, s := range src {
		if pos := strings.IndexByte(s, '%'); pos >= 0 {
			out[i] = s[:pos] + pattern + s[pos+1:]
		} else {
			out[i] = s
		}
	}
	return out
}
