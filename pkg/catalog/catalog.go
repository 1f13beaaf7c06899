// Copyright 2025 buildra LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog holds the ordered rewrite rules shared by the scanner and
// the rewriter. A catalog is built once at startup and never mutated after.
package catalog

import (
	"regexp"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Scope tags where a rule is expected to match. Matching is textual, so
// the tag is informational: it ends up in reports, not in match logic.
type Scope string

const (
	ScopeStringLiteral Scope = "string-literal"
	ScopeIdentifier    Scope = "identifier"
	ScopeComment       Scope = "comment"
)

// 🔄 Rule is a single rewrite rule. Rules are pure values; compilation
// happens in New and a compiled rule is never modified again.
type Rule struct {
	ID        string // Unique rule identifier, used in reports
	Match     string // Literal text or regular expression to find
	Replace   string // Replacement text
	Scope     Scope  // Where this rule is expected to apply
	Regex     bool   // Treat Match as a regular expression instead of literal text
	WholeWord bool   // Anchor the match on word boundaries

	re *regexp.Regexp
}

// 📚 Catalog is an immutable ordered collection of rules. Rules are applied
// in list order; later rules see the output of earlier ones.
type Catalog struct {
	rules []Rule
}

// 🏭 New compiles the given rules into a catalog. Any malformed rule is a
// fatal load error: no file may be touched with a partially valid catalog.
func New(rules []Rule) (*Catalog, error) {
	compiled := make([]Rule, 0, len(rules))
	seen := make(map[string]bool, len(rules))

	for i, rule := range rules {
		if rule.ID == "" {
			return nil, errors.Errorf("rule %d: id is required", i)
		}
		if seen[rule.ID] {
			return nil, errors.Errorf("rule %d: duplicate id %q", i, rule.ID)
		}
		seen[rule.ID] = true

		if rule.Match == "" {
			return nil, errors.Errorf("rule %q: match is required", rule.ID)
		}
		switch rule.Scope {
		case ScopeStringLiteral, ScopeIdentifier, ScopeComment:
		default:
			return nil, errors.Errorf("rule %q: unknown scope %q", rule.ID, rule.Scope)
		}

		expr := rule.Match
		if !rule.Regex {
			expr = regexp.QuoteMeta(expr)
		}
		if rule.WholeWord {
			// Group before anchoring so alternations stay inside the word
			// boundaries.
			expr = `\b(?:` + expr + `)\b`
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, errors.Errorf("rule %q: compiling pattern: %w", rule.ID, err)
		}
		rule.re = re
		compiled = append(compiled, rule)
	}

	return &Catalog{rules: compiled}, nil
}

// 📝 Rules returns a copy of the rule list.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Len returns the number of rules.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// 🔍 Match runs every rule's match test against content and returns the IDs
// of matching rules plus the total occurrence count. No replacement happens.
// Counts are taken against the input as-is, so they are a pre-rewrite
// estimate: Apply's totals can differ when one rule's output feeds a later
// rule.
func (c *Catalog) Match(content []byte) ([]string, int) {
	var ids []string
	total := 0
	for _, rule := range c.rules {
		n := len(rule.re.FindAllIndex(content, -1))
		if n > 0 {
			ids = append(ids, rule.ID)
			total += n
		}
	}
	return ids, total
}

// 🔄 Apply runs every rule's substitution in catalog order and returns the
// rewritten content, per-rule hit counts, and the total hit count. The input
// slice is never modified.
func (c *Catalog) Apply(content []byte) ([]byte, map[string]int, int) {
	current := content
	hits := make(map[string]int, len(c.rules))
	total := 0

	for _, rule := range c.rules {
		n := len(rule.re.FindAllIndex(current, -1))
		if n == 0 {
			continue
		}
		if rule.Regex {
			// Regex rules may use $1-style capture references.
			current = rule.re.ReplaceAll(current, []byte(rule.Replace))
		} else {
			current = rule.re.ReplaceAllLiteral(current, []byte(rule.Replace))
		}
		hits[rule.ID] = n
		total += n
	}

	return current, hits, total
}
