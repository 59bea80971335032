package service

import (
	"context"
	"errors"
	"log/slog"

	"volunteerhub/internal/org/models"
	"volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	"volunteerhub/pkg/platform/sentinel"
	pkgstrings "volunteerhub/pkg/platform/strings"
	"volunteerhub/pkg/requestcontext"
)

// Store is the persistence contract for organization profiles.
type Store interface {
	Upsert(ctx context.Context, o *models.Organization) error
	FindByID(ctx context.Context, id domain.OrgID) (*models.Organization, error)
	List(ctx context.Context, orgTypes []string) ([]*models.Organization, error)
	Count(ctx context.Context) (int, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns an organization profile by id.
func (s *Service) Get(ctx context.Context, id domain.OrgID) (*models.Organization, error) {
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load organization")
	}
	return o, nil
}

// UpdateProfile writes the caller's profile, creating it on first save.
func (s *Service) UpdateProfile(ctx context.Context, id domain.OrgID, p models.Profile) (*models.Organization, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	o := &models.Organization{
		ID:          id,
		Name:        p.Name,
		Type:        p.Type,
		Address:     p.Address,
		Contact:     p.Contact,
		Description: p.Description,
		LogoRef:     p.LogoRef,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Upsert(ctx, o); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save organization")
	}
	s.logger.InfoContext(ctx, "organization profile saved", "org_id", id)
	return s.Get(ctx, id)
}

// List returns organizations, optionally narrowed to a set of types. Types
// match case-insensitively; duplicates and blanks in the filter are dropped.
func (s *Service) List(ctx context.Context, orgTypes []string) ([]*models.Organization, error) {
	orgs, err := s.store.List(ctx, pkgstrings.DedupeAndTrimLower(orgTypes))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list organizations")
	}
	return orgs, nil
}

// Count reports the number of organizations for the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "count organizations")
	}
	return n, nil
}
