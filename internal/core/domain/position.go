package domain

import (
	"fmt"
	"strings"
)

// AdminLevelThreshold is the position level at and above which a position
// is treated as administrative.
const AdminLevelThreshold = 100

// adminPositionName always marks a position as administrative regardless of level.
const adminPositionName = "Admin"

// Action is an operation a position may be allowed to perform on a section.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
)

// AllActions lists every action in display order.
var AllActions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete}

// ParseAction converts a string into an Action, rejecting unknown values.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	_, err := ParseAction(string(a))
	return err == nil
}

// Section names an area of the CRM guarded by permissions.
type Section string

const (
	SectionUsers           Section = "users"
	SectionDeals           Section = "deals"
	SectionCarriers        Section = "carriers"
	SectionProducts        Section = "products"
	SectionPositions       Section = "positions"
	SectionAccountSettings Section = "account-settings"
)

// KnownSections lists the sections the admin UI renders.
var KnownSections = []Section{
	SectionUsers,
	SectionDeals,
	SectionCarriers,
	SectionProducts,
	SectionPositions,
	SectionAccountSettings,
}

// Permissions maps a section to the actions allowed on it.
type Permissions map[Section]map[Action]bool

// Allows reports whether the table grants action on section.
// Missing sections and actions are denied.
func (p Permissions) Allows(section Section, action Action) bool {
	actions, ok := p[section]
	if !ok {
		return false
	}
	return actions[action]
}

// Clone returns a deep copy so callers can mutate freely.
func (p Permissions) Clone() Permissions {
	out := make(Permissions, len(p))
	for section, actions := range p {
		cp := make(map[Action]bool, len(actions))
		for a, ok := range actions {
			cp[a] = ok
		}
		out[section] = cp
	}
	return out
}

// Position is a named authorisation tier combining a level with a permission table.
type Position struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Level       int         `json:"level"`
	IsAdmin     bool        `json:"is_admin"`
	Permissions Permissions `json:"permissions"`
}

// Normalize recomputes IsAdmin from Level and Name. Stores call it on every
// read and write so the flag never drifts from its definition.
func (p *Position) Normalize() {
	p.IsAdmin = p.Level >= AdminLevelThreshold || p.Name == adminPositionName
	if p.Permissions == nil {
		p.Permissions = Permissions{}
	}
}

// PositionSummary is the compact position view embedded in profiles.
type PositionSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Level   int    `json:"level"`
	IsAdmin bool   `json:"is_admin"`
}

// Summary returns the public summary of p.
func (p *Position) Summary() PositionSummary {
	return PositionSummary{ID: p.ID, Name: p.Name, Level: p.Level, IsAdmin: p.IsAdmin}
}

// Built-in positions used when a user has no position row.
const (
	BuiltinAdminPositionID = "builtin-admin"
	BuiltinNonePositionID  = "builtin-none"
)

// RolePosition derives the position for a user without an assigned one.
// Administrative roles get an admin position, everything else gets an
// empty permission table.
func RolePosition(role Role) *Position {
	var p Position
	if role.IsAdministrative() {
		p = Position{ID: BuiltinAdminPositionID, Name: adminPositionName, Level: AdminLevelThreshold}
	} else {
		p = Position{ID: BuiltinNonePositionID, Name: "Unassigned", Level: 0}
	}
	p.Normalize()
	return &p
}
