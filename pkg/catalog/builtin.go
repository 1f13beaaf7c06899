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

package catalog

// 🗺️ Canonical role enum after consolidation. The application database and
// type system carry exactly these six values.
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSupervisor = "supervisor"
	RoleCrew       = "crew"
	RoleFinance    = "finance"
	RoleViewer     = "viewer"
)

// legacyRoles maps each of the thirteen legacy role tokens onto its canonical
// replacement. Order matters: longer tokens that contain shorter ones (for
// example assistant_project_manager vs project_manager) are listed first so
// that whole-word anchoring is never the only thing standing between a token
// and a partial rewrite.
var legacyRoles = []struct {
	legacy    string
	canonical string
}{
	{"system_admin", RoleAdmin},
	{"office_admin", RoleAdmin},
	{"assistant_project_manager", RoleManager},
	{"construction_manager", RoleManager},
	{"project_manager", RoleManager},
	{"site_manager", RoleManager},
	{"site_supervisor", RoleSupervisor},
	{"general_foreman", RoleSupervisor},
	{"foreman", RoleSupervisor},
	{"subcontractor", RoleCrew},
	{"estimator", RoleFinance},
	{"bookkeeper", RoleFinance},
	{"read_only", RoleViewer},
}

// 🏭 Default returns the built-in catalog: the role consolidation rules
// followed by the placeholder-phrase rules. Role rules are whole-word so a
// token embedded in a longer identifier is left alone; placeholder rules are
// plain phrase substitutions.
func Default() (*Catalog, error) {
	rules := make([]Rule, 0, len(legacyRoles)+2)
	for _, m := range legacyRoles {
		rules = append(rules, Rule{
			ID:        "role-" + m.legacy,
			Match:     m.legacy,
			Replace:   m.canonical,
			Scope:     ScopeIdentifier,
			WholeWord: true,
		})
	}

	rules = append(rules,
		Rule{
			ID:      "placeholder-coming-soon",
			Match:   "This feature is coming soon!",
			Replace: "This feature is not yet available.",
			Scope:   ScopeStringLiteral,
		},
		Rule{
			ID:      "placeholder-wip-marker",
			Match:   "WORK IN PROGRESS - DO NOT SHIP",
			Replace: "Pending implementation",
			Scope:   ScopeComment,
		},
	)

	return New(rules)
}
