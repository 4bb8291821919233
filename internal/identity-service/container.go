package identityservice

import (
	"context"
	"fmt"
	"net/http"

	"food-dispatch/internal/bm"
	"food-dispatch/internal/config"
	"food-dispatch/internal/httpserver"
	ibm "food-dispatch/internal/identity-service/adapters/driven/bm"
	"food-dispatch/internal/identity-service/adapters/driven/consumer"
	"food-dispatch/internal/identity-service/adapters/driven/db"
	"food-dispatch/internal/identity-service/adapters/driver/myhttp"
	"food-dispatch/internal/identity-service/adapters/driver/myhttp/handle"
	"food-dispatch/internal/identity-service/core/ports"
	"food-dispatch/internal/identity-service/core/services"
	"food-dispatch/internal/jobs"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"
	"food-dispatch/internal/postgres"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
)

const retrySweepJob = "identity_retry"

type broker struct {
	conn *bm.RabbitMQ
	pub  bm.Publisher
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func buildContainer(ctx context.Context, cfg *config.Config, log mylogger.Logger) (*dig.Container, error) {
	c := dig.New()

	if err := registerCore(ctx, c, cfg, log); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerStorage(c); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if err := registerServices(c); err != nil {
		return nil, fmt.Errorf("services: %w", err)
	}
	if err := registerHTTP(c); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return c, nil
}

func registerCore(ctx context.Context, c *dig.Container, cfg *config.Config, log mylogger.Logger) error {
	return provideAll(c,
		func() context.Context { return ctx },
		func() *config.Config { return cfg },
		func() mylogger.Logger { return log },
		func() *prometheus.Registry {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			return reg
		},
		func(reg *prometheus.Registry) *metrics.Identity { return metrics.NewIdentity(reg) },
		func(reg *prometheus.Registry) *metrics.HTTP { return metrics.NewHTTP(reg) },
	)
}

func registerStorage(c *dig.Container) error {
	return provideAll(c,
		func(ctx context.Context, cfg *config.Config, log mylogger.Logger) (*postgres.DB, error) {
			return postgres.New(ctx, cfg.DB, log)
		},
		func(d *postgres.DB) *db.IdentityRepo { return db.NewIdentityRepo(d) },
		func(ctx context.Context, cfg *config.Config, log mylogger.Logger) (*broker, error) {
			if !cfg.Messaging.Enabled {
				log.Warn("messaging disabled, registrations are not sent and no results are consumed")
				return &broker{pub: bm.NopPublisher{}}, nil
			}
			conn, err := bm.New(ctx, *cfg.RabbitMq, log)
			if err != nil {
				return nil, err
			}
			return &broker{conn: conn, pub: conn}, nil
		},
	)
}

func registerServices(c *dig.Container) error {
	return provideAll(c,
		func(r *db.IdentityRepo) ports.IIdentityRepo { return r },
		func(b *broker) ports.IRegistryPublisher { return ibm.NewRegistryPublisher(b.pub) },
		func(cfg *config.Config, repo ports.IIdentityRepo, pub ports.IRegistryPublisher, m *metrics.Identity, log mylogger.Logger) *services.Reconciler {
			return services.NewReconciler(repo, pub, nil, cfg.Identity.PendingTimeout, m, log)
		},
		func(repo ports.IIdentityRepo, pub ports.IRegistryPublisher, log mylogger.Logger) *services.RegistrationService {
			return services.NewRegistrationService(repo, pub, nil, log)
		},
		func(cfg *config.Config, r *services.Reconciler, log mylogger.Logger) *jobs.Manager {
			return jobs.NewManager(jobs.New(retrySweepJob, cfg.Identity.RetryInterval, r.RetrySweep, log))
		},
		func(r *services.Reconciler, log mylogger.Logger) *consumer.Consumers {
			return consumer.New(r, log)
		},
	)
}

func registerHTTP(c *dig.Container) error {
	return provideAll(c,
		func(s *services.RegistrationService, log mylogger.Logger) *handle.RegistrationHandler {
			return handle.NewRegistrationHandler(s, log)
		},
		func(d *postgres.DB, b *broker) myhttp.HealthChecks {
			checks := myhttp.HealthChecks{"db": d.IsAlive}
			if b.conn != nil {
				checks["broker"] = func(context.Context) error {
					if !b.conn.IsAlive() {
						return bm.ErrClosed
					}
					return nil
				}
			}
			return checks
		},
		func(h *handle.RegistrationHandler, hm *metrics.HTTP, reg *prometheus.Registry, checks myhttp.HealthChecks) http.Handler {
			return myhttp.NewRouter(h, hm, reg, checks)
		},
		func(cfg *config.Config, h http.Handler, log mylogger.Logger) *httpserver.Server {
			return httpserver.NewServer(cfg.Srv.IdentityServicePort, h, log)
		},
	)
}
