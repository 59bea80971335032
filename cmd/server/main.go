// Command server runs the volunteering lifecycle backend: task publication,
// applications, proof submissions, and certificates, behind a role-gated
// HTTP API. Identity (registration, login, token issuance) lives in an
// external service; this process only verifies its tokens.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	applicationHandler "volunteerhub/internal/application/handler"
	applicationService "volunteerhub/internal/application/service"
	applicationStore "volunteerhub/internal/application/store/postgres"
	certificateHandler "volunteerhub/internal/certificate/handler"
	certificateService "volunteerhub/internal/certificate/service"
	certificateStore "volunteerhub/internal/certificate/store/postgres"
	"volunteerhub/internal/identity"
	orgHandler "volunteerhub/internal/org/handler"
	orgService "volunteerhub/internal/org/service"
	orgStore "volunteerhub/internal/org/store/postgres"
	"volunteerhub/internal/platform/config"
	"volunteerhub/internal/platform/database"
	"volunteerhub/internal/platform/httpserver"
	"volunteerhub/internal/platform/logger"
	"volunteerhub/internal/platform/metrics"
	platformredis "volunteerhub/internal/platform/redis"
	queryHandler "volunteerhub/internal/query/handler"
	queryService "volunteerhub/internal/query/service"
	"volunteerhub/internal/render"
	"volunteerhub/internal/storage"
	submissionHandler "volunteerhub/internal/submission/handler"
	submissionService "volunteerhub/internal/submission/service"
	submissionStore "volunteerhub/internal/submission/store/postgres"
	taskHandler "volunteerhub/internal/task/handler"
	taskService "volunteerhub/internal/task/service"
	taskStore "volunteerhub/internal/task/store/postgres"
	httptransport "volunteerhub/internal/transport/http"
	"volunteerhub/pkg/platform/audit/relay"
	auditpg "volunteerhub/pkg/platform/audit/store/postgres"
	txcontext "volunteerhub/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Error("schema setup failed", "error", err)
		os.Exit(1)
	}

	cache, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
		log.Info("stats cache enabled", "ttl", cfg.StatsCacheTTL)
	}

	proofs, err := storage.NewFilesystemStore(cfg.ProofUploadDir)
	if err != nil {
		log.Error("proof store setup failed", "error", err)
		os.Exit(1)
	}

	m := metrics.New()
	auditor := auditpg.New(db)
	runner := txcontext.NewSQLRunner(db)

	tasks := taskStore.New(db)
	applications := applicationStore.New(db)
	submissions := submissionStore.New(db)
	certificates := certificateStore.New(db)
	orgs := orgStore.New(db)

	taskSvc := taskService.New(tasks,
		taskService.WithLogger(log),
		taskService.WithAuditStore(auditor),
		taskService.WithMetrics(m),
	)
	applicationSvc := applicationService.New(applications, tasks, runner,
		applicationService.WithLogger(log),
		applicationService.WithAuditStore(auditor),
		applicationService.WithMetrics(m),
	)
	certificateSvc := certificateService.New(certificates, tasks, render.NewJSONRenderer(),
		certificateService.WithLogger(log),
		certificateService.WithAuditStore(auditor),
		certificateService.WithMetrics(m),
		certificateService.WithBaseURL(cfg.BaseURL),
	)
	submissionSvc := submissionService.New(submissions, applications, tasks, proofs, certificateSvc, runner,
		submissionService.WithLogger(log),
		submissionService.WithAuditStore(auditor),
		submissionService.WithMetrics(m),
	)
	orgSvc := orgService.New(orgs, orgService.WithLogger(log))

	queryOpts := []queryService.Option{queryService.WithLogger(log)}
	if cache != nil {
		queryOpts = append(queryOpts, queryService.WithCache(cache, cfg.StatsCacheTTL))
	}
	querySvc := queryService.New(orgs, tasks, applications, submissions, certificates, applications, queryOpts...)

	healthChecks := map[string]func(ctx context.Context) error{
		"database": db.PingContext,
	}
	if cache != nil {
		healthChecks["redis"] = cache.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Verifier:     identity.NewVerifier(cfg.JWTSigningKey),
		Tasks:        taskHandler.New(taskSvc, log),
		Applications: applicationHandler.New(applicationSvc, log),
		Submissions:  submissionHandler.New(submissionSvc, log),
		Certificates: certificateHandler.New(certificateSvc, log),
		Orgs:         orgHandler.New(orgSvc, log),
		Query:        queryHandler.New(querySvc, log),
		HealthChecks: healthChecks,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gCtx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			log.Error("kafka client setup failed", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()

		auditRelay := relay.New(db, kafkaClient, cfg.Kafka.Topic, log)
		if err := auditRelay.EnsureTopic(ctx); err != nil {
			log.Error("audit topic setup failed", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			if err := auditRelay.Run(gCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("audit relay started", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	}

	g.Go(func() error {
		log.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
