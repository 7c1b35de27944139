package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"accountability-service/internal/auth"
	"accountability-service/internal/backoff"
	"accountability-service/internal/dashboard"
	"accountability-service/internal/lifecycle"
	"accountability-service/internal/model"
	"accountability-service/internal/repository"
	"accountability-service/internal/sla"

	"github.com/google/uuid"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

var wardPattern = regexp.MustCompile(`(?i)\bward[\s\-#:]*(\d{1,3})\b`)

type ComplaintService struct {
	store      repository.ComplaintStore
	machine    *lifecycle.Machine
	clock      *sla.Clock
	authorizer *auth.Authorizer
	cache      dashboard.Cache
	retry      backoff.Policy
}

func NewComplaintService(
	store repository.ComplaintStore,
	machine *lifecycle.Machine,
	clock *sla.Clock,
	authorizer *auth.Authorizer,
	cache dashboard.Cache,
	retry backoff.Policy,
) *ComplaintService {
	if cache == nil {
		cache = dashboard.NoopCache{}
	}
	return &ComplaintService{
		store:      store,
		machine:    machine,
		clock:      clock,
		authorizer: authorizer,
		cache:      cache,
		retry:      retry,
	}
}

// Submit files a new complaint. Severity and deadlines are derived here and
// never taken from the caller.
func (s *ComplaintService) Submit(ctx context.Context, req *model.SubmitComplaintRequest) (*model.Complaint, error) {
	if err := validateSubmit(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	deadline, action := s.clock.Deadlines(req.Category, now)
	c := &model.Complaint{
		ID:              uuid.New().String(),
		Category:        req.Category,
		SubCategory:     strings.TrimSpace(req.SubCategory),
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		LocationAddress: strings.TrimSpace(req.LocationAddress),
		Ward:            ResolveWard(req.Ward, req.LocationAddress),
		Anonymous:       req.Anonymous,
		Severity:        model.SeverityFor(req.Category),
		Status:          model.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		SLADeadline:     deadline,
		ActionDeadline:  action,
		Version:         1,
	}
	if !req.Anonymous {
		c.ReporterID = nonBlank(req.ReporterID)
		c.ReporterName = nonBlank(req.ReporterName)
	}

	event, err := model.NewComplaintEvent(model.RoutingKeyComplaintFiled, c, "", now)
	if err != nil {
		return nil, err
	}
	err = backoff.Do(ctx, s.retry, "complaint", func() error {
		return s.store.Create(ctx, c, event)
	})
	if err != nil {
		return nil, fmt.Errorf("file complaint: %w", err)
	}

	s.invalidate(ctx)
	log.Printf("complaint: filed %s (%s, sla %s)", c.ID, c.Category, c.SLADeadline.Format("2006-01-02T15:04:05Z"))
	return c, nil
}

func validateSubmit(req *model.SubmitComplaintRequest) error {
	if req == nil {
		return &model.ValidationError{Field: "body", Message: "required"}
	}
	if !req.Category.Valid() {
		return &model.ValidationError{Field: "category", Message: fmt.Sprintf("must be one of civic, governance, safety; got %q", req.Category)}
	}
	required := []struct {
		field, value string
		max          int
	}{
		{"title", req.Title, maxTitleLength},
		{"description", req.Description, maxDescriptionLength},
		{"location_address", req.LocationAddress, maxDescriptionLength},
	}
	for _, r := range required {
		v := strings.TrimSpace(r.value)
		if v == "" {
			return &model.ValidationError{Field: r.field, Message: "required"}
		}
		if len(v) > r.max {
			return &model.ValidationError{Field: r.field, Message: fmt.Sprintf("longer than %d characters", r.max)}
		}
	}
	return nil
}

// ResolveWard picks the dashboard bucket: an explicit ward, else one named in
// the address, else Unassigned.
func ResolveWard(ward, address string) string {
	if ward = strings.TrimSpace(ward); ward != "" {
		if m := wardPattern.FindStringSubmatch(ward); m != nil {
			return "Ward " + m[1]
		}
		if isDigits(ward) {
			return "Ward " + ward
		}
		return ward
	}
	if m := wardPattern.FindStringSubmatch(address); m != nil {
		return "Ward " + m[1]
	}
	return model.UnassignedWard
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func nonBlank(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// Get returns the public view of one complaint.
func (s *ComplaintService) Get(ctx context.Context, id string) (*model.Complaint, error) {
	var c *model.Complaint
	err := backoff.Do(ctx, s.retry, "complaint", func() error {
		var err error
		c, err = s.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c.Public(), nil
}

// Transition applies a department action. The actor is authorized before
// anything else about the complaint is revealed. expectedVersion, when set,
// must match the stored version or the call fails with ErrConflict.
func (s *ComplaintService) Transition(ctx context.Context, id string, action model.Action, credential string, expectedVersion *int64) (*model.Complaint, error) {
	actor, err := s.authorizer.Verify(credential)
	if err != nil {
		return nil, err
	}

	var updated *model.Complaint
	err = backoff.Do(ctx, s.retry, "complaint", func() error {
		var err error
		updated, err = s.store.Update(ctx, id, func(c *model.Complaint) (*model.OutboxMessage, error) {
			if err := s.authorizer.Authorize(actor, c.Category); err != nil {
				return nil, err
			}
			if expectedVersion != nil && c.Version != *expectedVersion {
				return nil, fmt.Errorf("%w: complaint is at version %d", model.ErrConflict, c.Version)
			}
			now := s.clock.Now()
			from := c.Status
			changed, err := s.machine.Apply(c, action, actor, now)
			if err != nil {
				return nil, err
			}
			if !changed {
				return nil, repository.ErrNoChange
			}
			return model.NewComplaintEvent(model.RoutingKeyStatusUpdated, c, from, now)
		})
		return err
	})
	if errors.Is(err, repository.ErrNoChange) {
		return updated.Public(), nil
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	log.Printf("complaint: %s %s by %s -> %s", id, action, actor.ID, updated.Status)
	return updated.Public(), nil
}

// PublicFeed returns one page of the anonymized feed. Anonymous complaints are
// listed like any other.
func (s *ComplaintService) PublicFeed(ctx context.Context, filter model.PublicFilter) ([]*model.Complaint, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, &model.ValidationError{Field: "category", Message: "unknown category"}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &model.ValidationError{Field: "status", Message: "unknown status"}
	}

	out := []*model.Complaint{}
	for c, err := range s.store.ListPublic(ctx, filter) {
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type CategoryInfo struct {
	ID               model.Category `json:"id"`
	Label            string         `json:"label"`
	Severity         model.Severity `json:"severity"`
	AcknowledgeHours float64        `json:"acknowledge_hours"`
	ActionHours      float64        `json:"action_hours,omitempty"`
	SubCategories    []string       `json:"sub_categories"`
}

func (s *ComplaintService) Categories() []CategoryInfo {
	out := make([]CategoryInfo, 0, len(model.Categories))
	for _, c := range model.Categories {
		w, _ := s.clock.Policy().Window(c)
		out = append(out, CategoryInfo{
			ID:               c,
			Label:            c.Label(),
			Severity:         model.SeverityFor(c),
			AcknowledgeHours: w.Acknowledge.Hours(),
			ActionHours:      w.Action.Hours(),
			SubCategories:    c.SubCategories(),
		})
	}
	return out
}

func (s *ComplaintService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("complaint: invalidate dashboard cache: %v", err)
	}
}
