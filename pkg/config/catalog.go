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

package config

import (
	"github.com/buildra/rolefix/pkg/catalog"
	"gitlab.com/tozd/go/errors"
)

// 🏭 BuildCatalog assembles the run catalog: the built-in rules (unless
// disabled) followed by the config file's extra rules, in file order.
func (cfg *Config) BuildCatalog() (*catalog.Catalog, error) {
	var rules []catalog.Rule

	if !cfg.DisableBuiltinRules {
		builtin, err := catalog.Default()
		if err != nil {
			return nil, errors.Errorf("loading built-in rules: %w", err)
		}
		rules = builtin.Rules()
	}

	for _, spec := range cfg.Rules {
		scope := catalog.Scope(spec.Scope)
		if spec.Scope == "" {
			scope = catalog.ScopeIdentifier
		}
		rules = append(rules, catalog.Rule{
			ID:        spec.ID,
			Match:     spec.Match,
			Replace:   spec.Replace,
			Scope:     scope,
			Regex:     spec.Regex,
			WholeWord: spec.WholeWord,
		})
	}

	cat, err := catalog.New(rules)
	if err != nil {
		return nil, errors.Errorf("compiling catalog: %w", err)
	}
	return cat, nil
}
