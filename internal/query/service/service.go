package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	dErrors "volunteerhub/pkg/domain-errors"

	platformredis "volunteerhub/internal/platform/redis"
)

const statsCacheKey = "volunteerhub:admin:stats"

// Stats is the admin dashboard summary.
type Stats struct {
	Volunteers    int `json:"volunteers"`
	Organizations int `json:"organizations"`
	Tasks         int `json:"tasks"`
	Applications  int `json:"applications"`
	Submissions   int `json:"submissions"`
	Certificates  int `json:"certificates"`
}

// Counter is the one-method slice of each registry the facade reads.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// VolunteerCounter reports distinct volunteers seen by the application
// ledger.
type VolunteerCounter interface {
	CountVolunteers(ctx context.Context) (int, error)
}

// Service composes read-side views over the four registries. A nil cache
// disables caching.
type Service struct {
	orgs         Counter
	tasks        Counter
	applications Counter
	submissions  Counter
	certificates Counter
	volunteers   VolunteerCounter
	cache        *platformredis.Client
	cacheTTL     time.Duration
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCache enables Redis caching of the stats view.
func WithCache(c *platformredis.Client, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func New(orgs, tasks, applications, submissions, certificates Counter, volunteers VolunteerCounter, opts ...Option) *Service {
	s := &Service{
		orgs:         orgs,
		tasks:        tasks,
		applications: applications,
		submissions:  submissions,
		certificates: certificates,
		volunteers:   volunteers,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stats returns the dashboard counters, served from Redis when a fresh copy
// exists. Cache failures degrade to direct reads.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	var (
		stats Stats
		err   error
	)
	if stats.Organizations, err = s.orgs.Count(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count organizations")
	}
	if stats.Tasks, err = s.tasks.Count(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count tasks")
	}
	if stats.Applications, err = s.applications.Count(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count applications")
	}
	if stats.Submissions, err = s.submissions.Count(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count submissions")
	}
	if stats.Certificates, err = s.certificates.Count(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count certificates")
	}
	if stats.Volunteers, err = s.volunteers.CountVolunteers(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count volunteers")
	}

	s.toCache(ctx, &stats)
	return &stats, nil
}

func (s *Service) fromCache(ctx context.Context) *Stats {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, statsCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		s.logger.WarnContext(ctx, "corrupt stats cache entry dropped", "error", err)
		s.cache.Del(ctx, statsCacheKey)
		return nil
	}
	return &stats
}

func (s *Service) toCache(ctx context.Context, stats *Stats) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statsCacheKey, raw, s.cacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "stats cache write failed", "error", err)
	}
}
