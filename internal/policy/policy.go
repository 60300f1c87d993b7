// Package policy is the single source of truth for who may do what to a
// complaint. Every mutating operation consults it before touching the store;
// no other component re-derives role logic.
package policy

import (
	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/metrics"
)

// Action is an operation an actor can attempt on a complaint
type Action string

const (
	ActionView         Action = "view"
	ActionCreate       Action = "create"
	ActionAssign       Action = "assign"
	ActionChangeStatus Action = "change_status"
	ActionListAll      Action = "list_all"
)

// Allowed evaluates the capability table for the given actor, action and
// complaint. The complaint may be nil for actions that do not target an
// existing record (create, list_all). Every decision is recorded in metrics.
func Allowed(actor auth.Actor, action Action, c *domain.Complaint) bool {
	allowed := decide(actor, action, c)
	metrics.RecordAuthorizationDecision(string(action), string(actor.Role), allowed)
	return allowed
}

func decide(actor auth.Actor, action Action, c *domain.Complaint) bool {
	switch action {
	case ActionView:
		if c == nil {
			return false
		}
		switch actor.Role {
		case auth.RoleAdmin:
			return true
		case auth.RoleCitizen:
			return c.SubmittedBy == actor.ID
		case auth.RoleStaff:
			return c.AssignedTo != nil && *c.AssignedTo == actor.ID
		}
		return false

	case ActionCreate:
		return actor.Role == auth.RoleCitizen

	case ActionAssign:
		return actor.Role == auth.RoleAdmin

	case ActionChangeStatus:
		switch actor.Role {
		case auth.RoleAdmin:
			return true
		case auth.RoleStaff:
			return c != nil && c.AssignedTo != nil && *c.AssignedTo == actor.ID
		}
		return false

	case ActionListAll:
		return actor.Role == auth.RoleAdmin
	}

	return false
}
