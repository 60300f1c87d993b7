package policy

import (
	"testing"

	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/types"
)

func newComplaint(t *testing.T, submitter types.ID) *domain.Complaint {
	t.Helper()

	c, err := domain.NewComplaint(submitter, "Leaking hydrant", "Hydrant leaking since Monday", domain.CategoryWater, domain.PriorityMedium, nil, "")
	if err != nil {
		t.Fatalf("Failed to create complaint: %v", err)
	}
	return c
}

// TestCapabilityTable walks the full role/action matrix
func TestCapabilityTable(t *testing.T) {
	owner := types.NewID()
	assignee := types.NewID()
	other := types.NewID()

	own := newComplaint(t, owner)

	assigned := newComplaint(t, owner)
	if err := assigned.Assign(types.NewID(), assignee); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	tests := []struct {
		name      string
		actor     auth.Actor
		action    Action
		complaint *domain.Complaint
		want      bool
	}{
		// view
		{"Citizen views own complaint", auth.Actor{ID: owner, Role: auth.RoleCitizen}, ActionView, own, true},
		{"Citizen views someone else's complaint", auth.Actor{ID: other, Role: auth.RoleCitizen}, ActionView, own, false},
		{"Staff views assigned complaint", auth.Actor{ID: assignee, Role: auth.RoleStaff}, ActionView, assigned, true},
		{"Staff views unassigned complaint", auth.Actor{ID: assignee, Role: auth.RoleStaff}, ActionView, own, false},
		{"Staff views complaint assigned to another", auth.Actor{ID: other, Role: auth.RoleStaff}, ActionView, assigned, false},
		{"Admin views any complaint", auth.Actor{ID: other, Role: auth.RoleAdmin}, ActionView, own, true},

		// create
		{"Citizen creates", auth.Actor{ID: owner, Role: auth.RoleCitizen}, ActionCreate, nil, true},
		{"Staff creates", auth.Actor{ID: assignee, Role: auth.RoleStaff}, ActionCreate, nil, false},
		{"Admin creates", auth.Actor{ID: other, Role: auth.RoleAdmin}, ActionCreate, nil, false},

		// assign
		{"Citizen assigns", auth.Actor{ID: owner, Role: auth.RoleCitizen}, ActionAssign, own, false},
		{"Staff assigns", auth.Actor{ID: assignee, Role: auth.RoleStaff}, ActionAssign, own, false},
		{"Admin assigns", auth.Actor{ID: other, Role: auth.RoleAdmin}, ActionAssign, own, true},

		// change_status
		{"Citizen changes status of own complaint", auth.Actor{ID: owner, Role: auth.RoleCitizen}, ActionChangeStatus, own, false},
		{"Staff changes status of assigned complaint", auth.Actor{ID: assignee, Role: auth.RoleStaff}, ActionChangeStatus, assigned, true},
		{"Staff changes status of another's complaint", auth.Actor{ID: other, Role: auth.RoleStaff}, ActionChangeStatus, assigned, false},
		{"Staff changes status of unassigned complaint", auth.Actor{ID: assignee, Role: auth.RoleStaff}, ActionChangeStatus, own, false},
		{"Admin changes status of any complaint", auth.Actor{ID: other, Role: auth.RoleAdmin}, ActionChangeStatus, own, true},

		// list_all
		{"Citizen lists all", auth.Actor{ID: owner, Role: auth.RoleCitizen}, ActionListAll, nil, false},
		{"Staff lists all", auth.Actor{ID: assignee, Role: auth.RoleStaff}, ActionListAll, nil, false},
		{"Admin lists all", auth.Actor{ID: other, Role: auth.RoleAdmin}, ActionListAll, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Allowed(tt.actor, tt.action, tt.complaint); got != tt.want {
				t.Errorf("Allowed(%s, %s) = %v, want %v", tt.actor.Role, tt.action, got, tt.want)
			}
		})
	}
}

// TestUnknownAction ensures unknown actions are denied
func TestUnknownAction(t *testing.T) {
	actor := auth.Actor{ID: types.NewID(), Role: auth.RoleAdmin}
	if Allowed(actor, Action("export"), nil) {
		t.Error("Expected unknown action to be denied")
	}
}

// TestViewWithoutComplaint ensures view of a nil record is denied
func TestViewWithoutComplaint(t *testing.T) {
	actor := auth.Actor{ID: types.NewID(), Role: auth.RoleAdmin}
	if Allowed(actor, ActionView, nil) {
		t.Error("Expected view of nil complaint to be denied")
	}
}
