// Package complaint implements the complaint lifecycle operations: creation,
// assignment and status transitions. All capability checks go through the
// policy table before any store write.
package complaint

import (
	"context"
	"log"

	"github.com/civicdesk/platform/internal/complaint/domain"
	"github.com/civicdesk/platform/internal/identity"
	"github.com/civicdesk/platform/internal/policy"
	"github.com/civicdesk/platform/internal/shared/auth"
	"github.com/civicdesk/platform/internal/shared/errors"
	"github.com/civicdesk/platform/internal/shared/events"
	"github.com/civicdesk/platform/internal/shared/metrics"
	"github.com/civicdesk/platform/internal/shared/types"
)

// AssignmentNotifier is told about new assignments. Dispatch is
// fire-and-forget: a notifier failure never fails the assignment.
type AssignmentNotifier interface {
	NotifyAssigned(ctx context.Context, staffID types.ID, c *domain.Complaint) error
}

// Service coordinates the lifecycle engine, assignment manager and policy
// against the complaint store.
type Service struct {
	repo      domain.Repository
	directory identity.Directory
	notifier  AssignmentNotifier
	bus       events.EventBus
}

// NewService creates a new complaint service. notifier and bus may be nil.
func NewService(repo domain.Repository, directory identity.Directory, notifier AssignmentNotifier, bus events.EventBus) *Service {
	return &Service{repo: repo, directory: directory, notifier: notifier, bus: bus}
}

// CreateInput carries the submitter-settable fields of a new complaint
type CreateInput struct {
	Title       string
	Description string
	Category    domain.Category
	Priority    domain.Priority
	Location    *types.Location
	PhotoRef    string
}

// Create submits a new complaint on behalf of a citizen. Status is forced to
// OPEN and assignedTo to nil regardless of input.
func (s *Service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*domain.Complaint, error) {
	if !policy.Allowed(actor, policy.ActionCreate, nil) {
		return nil, errors.Forbidden("only citizens may submit complaints")
	}

	c, err := domain.NewComplaint(actor.ID, input.Title, input.Description, input.Category, input.Priority, input.Location, input.PhotoRef)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	metrics.RecordComplaintCreated(string(c.Category), string(c.Priority))
	s.publishEvents(ctx, actor, c)

	return c, nil
}

// Get loads a single complaint, gated by the view capability
func (s *Service) Get(ctx context.Context, actor auth.Actor, id types.ID) (*domain.Complaint, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.Allowed(actor, policy.ActionView, c) {
		return nil, errors.Forbidden("no access to this complaint")
	}

	return c, nil
}

// Assign binds a complaint to a staff member. Admin only; the target identity
// must hold the staff role. First assignment advances OPEN -> ASSIGNED; for an
// already-assigned complaint the assignee is swapped in the same conditional
// write. A lost concurrent race surfaces as Conflict.
func (s *Service) Assign(ctx context.Context, actor auth.Actor, complaintID, staffID types.ID) (*domain.Complaint, error) {
	c, err := s.repo.FindByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	if !policy.Allowed(actor, policy.ActionAssign, c) {
		return nil, errors.Forbidden("only admins may assign complaints")
	}

	role, err := s.directory.RoleOf(ctx, staffID)
	if err != nil {
		return nil, err
	}
	if role != auth.RoleStaff {
		return nil, errors.InvalidActor("assignee does not have the staff role")
	}

	expectedStatus := c.Status
	expectedVersion := c.Version
	alreadyAssigned := c.AssignedTo != nil && *c.AssignedTo == staffID

	if err := c.Assign(actor.ID, staffID); err != nil {
		return nil, err
	}

	// Re-assigning the current assignee is an idempotent no-op success;
	// nothing changed, so nothing is written.
	if alreadyAssigned {
		return c, nil
	}

	if err := s.repo.UpdateConditional(ctx, c, expectedStatus, expectedVersion); err != nil {
		return nil, err
	}

	metrics.RecordAssignment()
	s.publishEvents(ctx, actor, c)
	s.notifyAssigned(ctx, staffID, c)

	return c, nil
}

// SetStatus requests a lifecycle transition. Citizens may never change
// status; staff only on complaints assigned to them. Re-requesting the
// current status is an idempotent no-op success.
func (s *Service) SetStatus(ctx context.Context, actor auth.Actor, complaintID types.ID, target domain.Status) (*domain.Complaint, error) {
	c, err := s.repo.FindByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}

	if !policy.Allowed(actor, policy.ActionChangeStatus, c) {
		return nil, errors.Forbidden("not allowed to change the status of this complaint")
	}

	if target == c.Status {
		return c, nil
	}

	// OPEN -> ASSIGNED must carry a staff identity; it only happens through
	// Assign.
	if c.Status == domain.StatusOpen && target == domain.StatusAssigned {
		return nil, errors.InvalidTransition(string(c.Status), string(target))
	}

	from := c.Status
	expectedVersion := c.Version

	if err := c.Transition(actor.ID, target); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateConditional(ctx, c, from, expectedVersion); err != nil {
		return nil, err
	}

	metrics.RecordStatusChange(string(from), string(target))
	s.publishEvents(ctx, actor, c)

	return c, nil
}

// ListFilter carries the caller-settable listing options
type ListFilter struct {
	Status   *domain.Status
	Priority *domain.Priority
	Category *domain.Category
	Search   string
	Limit    int
	Offset   int
}

// ListVisible returns the complaints the actor is entitled to see: citizens
// their own, staff their assignments, admins everything.
func (s *Service) ListVisible(ctx context.Context, actor auth.Actor, filter ListFilter) ([]domain.Complaint, int, error) {
	repoFilter := domain.ListFilter{
		Status:    filter.Status,
		Priority:  filter.Priority,
		Category:  filter.Category,
		Search:    filter.Search,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
		OrderDesc: true,
	}

	if !policy.Allowed(actor, policy.ActionListAll, nil) {
		switch actor.Role {
		case auth.RoleCitizen:
			id := actor.ID
			repoFilter.SubmittedBy = &id
		case auth.RoleStaff:
			id := actor.ID
			repoFilter.AssignedTo = &id
		default:
			return nil, 0, errors.Forbidden("not allowed to list complaints")
		}
	}

	return s.repo.List(ctx, repoFilter)
}

func (s *Service) notifyAssigned(ctx context.Context, staffID types.ID, c *domain.Complaint) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyAssigned(ctx, staffID, c); err != nil {
		// Notification delivery must never fail the assignment
		log.Printf("assignment notification failed for complaint %s: %v", c.ID, err)
	}
}

func (s *Service) publishEvents(ctx context.Context, actor auth.Actor, c *domain.Complaint) {
	evts := c.DomainEvents()
	if s.bus == nil {
		return
	}

	for _, e := range evts {
		event := events.NewEvent("complaint."+string(e.Type), "complaint", map[string]any{
			"complaint_id": c.ID,
			"event":        e,
		}).WithActor(actor.ID, string(actor.Role))

		if err := s.bus.Publish(ctx, event); err != nil {
			log.Printf("failed to publish %s for complaint %s: %v", event.Type, c.ID, err)
		}
	}
}
