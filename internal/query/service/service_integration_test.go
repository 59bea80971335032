//go:build integration

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	appStore "volunteerhub/internal/application/store/memory"
	certStore "volunteerhub/internal/certificate/store/memory"
	orgModel "volunteerhub/internal/org/models"
	orgStore "volunteerhub/internal/org/store/memory"
	platformredis "volunteerhub/internal/platform/redis"
	"volunteerhub/internal/query/service"
	subStore "volunteerhub/internal/submission/store/memory"
	taskStore "volunteerhub/internal/task/store/memory"
	"volunteerhub/pkg/domain"
	"volunteerhub/pkg/testutil/containers"
)

type StatsCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	orgs  *orgStore.InMemory
	svc   *service.Service
}

func TestStatsCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StatsCacheSuite))
}

func (s *StatsCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
}

func (s *StatsCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))

	s.orgs = orgStore.NewInMemory()
	apps := appStore.NewInMemory()
	cache := &platformredis.Client{Client: s.redis.Client}
	s.svc = service.New(
		s.orgs,
		taskStore.NewInMemory(),
		apps,
		subStore.NewInMemory(),
		certStore.NewInMemory(),
		apps,
		service.WithCache(cache, time.Minute),
	)
}

// TestStatsServedFromCache verifies that a second read within the TTL does
// not see registry writes made after the first read.
func (s *StatsCacheSuite) TestStatsServedFromCache() {
	ctx := context.Background()

	first, err := s.svc.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(0, first.Organizations)

	s.Require().NoError(s.orgs.Upsert(ctx, &orgModel.Organization{
		ID: domain.NewOrgID(), Name: "Helping Hands", CreatedAt: time.Now(),
	}))

	second, err := s.svc.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(0, second.Organizations, "cached view should not see the new organization")
}

// TestCorruptCacheEntryIsDiscarded verifies that garbage in the cache key
// falls back to direct reads instead of failing the request.
func (s *StatsCacheSuite) TestCorruptCacheEntryIsDiscarded() {
	ctx := context.Background()

	s.Require().NoError(s.orgs.Upsert(ctx, &orgModel.Organization{
		ID: domain.NewOrgID(), Name: "Helping Hands", CreatedAt: time.Now(),
	}))
	s.Require().NoError(s.redis.Client.Set(ctx, "volunteerhub:admin:stats", "not json", 0).Err())

	stats, err := s.svc.Stats(ctx)
	s.Require().NoError(err)
	s.Equal(1, stats.Organizations)
}
