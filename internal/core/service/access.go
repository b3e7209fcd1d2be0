package service

import "github.com/crmadmin/access-core/internal/core/domain"

// PermissionResolver decides whether a position may perform an action on a
// section. It holds no state and never fails: a false result is turned into
// a 403 by the caller.
type PermissionResolver struct{}

func NewPermissionResolver() *PermissionResolver {
	return &PermissionResolver{}
}

// Allowed evaluates, in order: admin bypass, the account-settings override,
// then the position's own table. Anything not granted is denied.
func (r *PermissionResolver) Allowed(position *domain.Position, section domain.Section, action domain.Action) bool {
	if position == nil || !action.Valid() {
		return false
	}
	if position.IsAdmin {
		return true
	}
	if section == domain.SectionAccountSettings {
		return action == domain.ActionView || action == domain.ActionEdit
	}
	return position.Permissions.Allows(section, action)
}

// Effective expands the decision table for every known section so clients
// can render only what the caller may use.
func (r *PermissionResolver) Effective(position *domain.Position) domain.Permissions {
	sections := domain.KnownSections
	if position != nil {
		for s := range position.Permissions {
			if !containsSection(sections, s) {
				sections = append(sections[:len(sections):len(sections)], s)
			}
		}
	}

	out := make(domain.Permissions, len(sections))
	for _, s := range sections {
		actions := make(map[domain.Action]bool, len(domain.AllActions))
		for _, a := range domain.AllActions {
			actions[a] = r.Allowed(position, s, a)
		}
		out[s] = actions
	}
	return out
}

func containsSection(list []domain.Section, s domain.Section) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
