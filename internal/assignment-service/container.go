package assignmentservice

import (
	"context"
	"fmt"
	"net/http"

	abm "food-dispatch/internal/assignment-service/adapters/driven/bm"
	"food-dispatch/internal/assignment-service/adapters/driven/consumer"
	"food-dispatch/internal/assignment-service/adapters/driven/db"
	"food-dispatch/internal/assignment-service/adapters/driven/directory"
	"food-dispatch/internal/assignment-service/adapters/driven/orders"
	"food-dispatch/internal/assignment-service/adapters/driver/myhttp"
	"food-dispatch/internal/assignment-service/adapters/driver/myhttp/handle"
	"food-dispatch/internal/assignment-service/adapters/driver/myhttp/middleware"
	"food-dispatch/internal/assignment-service/adapters/driver/myhttp/ws"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/assignment-service/core/services"
	"food-dispatch/internal/bm"
	"food-dispatch/internal/config"
	"food-dispatch/internal/gateway"
	"food-dispatch/internal/httpserver"
	"food-dispatch/internal/jobs"
	"food-dispatch/internal/metrics"
	"food-dispatch/internal/mylogger"
	"food-dispatch/internal/postgres"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"
)

const expirySweepJob = "expiry_sweep"

// broker is the messaging side of the service. conn is nil when messaging
// is disabled and pub is then a no-op publisher.
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
	if err := registerClients(c); err != nil {
		return nil, fmt.Errorf("clients: %w", err)
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
		func(reg *prometheus.Registry) *metrics.Dispatch { return metrics.NewDispatch(reg) },
		func(reg *prometheus.Registry) *metrics.HTTP { return metrics.NewHTTP(reg) },
	)
}

func registerStorage(c *dig.Container) error {
	return provideAll(c,
		func(ctx context.Context, cfg *config.Config, log mylogger.Logger) (*postgres.DB, error) {
			return postgres.New(ctx, cfg.DB, log)
		},
		func(d *postgres.DB) *db.AssignmentRepo { return db.NewAssignmentRepo(d) },
		func(r *db.AssignmentRepo) ports.IAssignmentRepo { return r },
		func(ctx context.Context, cfg *config.Config, log mylogger.Logger) (*broker, error) {
			if !cfg.Messaging.Enabled {
				log.Warn("messaging disabled, events are dropped and no consumers run")
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

func registerClients(c *dig.Container) error {
	return provideAll(c,
		func(b *broker) ports.IDispatchPublisher { return abm.NewDispatchPublisher(b.pub) },
		func(cfg *config.Config) *http.Client { return &http.Client{Timeout: cfg.Clients.Timeout} },
		func(cfg *config.Config) gateway.RetryConfig {
			return gateway.RetryConfig{
				MaxAttempts: cfg.Clients.MaxAttempts,
				BaseDelay:   cfg.Clients.BaseDelay,
				MaxDelay:    cfg.Clients.MaxDelay,
			}
		},
		func(cfg *config.Config, hc *http.Client, rc gateway.RetryConfig, m *metrics.Dispatch, log mylogger.Logger) ports.IDirectory {
			return directory.New(cfg.Clients.DirectoryURL, hc, rc, m, log)
		},
		func(cfg *config.Config, hc *http.Client, rc gateway.RetryConfig, m *metrics.Dispatch, log mylogger.Logger) ports.IOrderDetails {
			return orders.New(cfg.Clients.OrderServiceURL, hc, rc, m, log)
		},
	)
}

func registerServices(c *dig.Container) error {
	return provideAll(c,
		func(cfg *config.Config, log mylogger.Logger) *ws.Dispatcher {
			return ws.NewDispatcher(cfg.App.DriverJwtSecret, nil, log)
		},
		func(d *ws.Dispatcher) ports.IDriverPusher { return d },
		func(cfg *config.Config, dir ports.IDirectory, log mylogger.Logger) *services.CandidateSelector {
			return services.NewCandidateSelector(dir, cfg.Dispatch.MaxCandidates, log)
		},
		func(cfg *config.Config, repo ports.IAssignmentRepo, m *metrics.Dispatch, log mylogger.Logger) *services.AssignmentLedger {
			return services.NewAssignmentLedger(repo, cfg.Dispatch.OfferWindow, nil, m, log)
		},
		services.NewNotificationFanout,
		func(
			cfg *config.Config,
			orderDetails ports.IOrderDetails,
			selector *services.CandidateSelector,
			ledger *services.AssignmentLedger,
			fanout *services.NotificationFanout,
			pub ports.IDispatchPublisher,
			log mylogger.Logger,
		) *services.Orchestrator {
			return services.NewOrchestrator(orderDetails, selector, ledger, fanout, pub, services.DispatchPolicy{
				SearchRadiusMeters:  cfg.Dispatch.SearchRadiusMeters,
				WidenedRadiusMeters: cfg.Dispatch.WidenedRadiusMeters,
				WidenOnExhaustion:   cfg.Dispatch.WidenOnExhaustion,
				VehicleClass:        cfg.Dispatch.VehicleClass,
				Currency:            cfg.Dispatch.Currency,
			}, nil, log)
		},
		func(
			ledger *services.AssignmentLedger,
			repo ports.IAssignmentRepo,
			pub ports.IDispatchPublisher,
			o *services.Orchestrator,
			m *metrics.Dispatch,
			log mylogger.Logger,
		) *services.ResponseResolver {
			return services.NewResponseResolver(ledger, repo, pub, o, nil, m, log)
		},
		func(ledger *services.AssignmentLedger, pub ports.IDispatchPublisher, log mylogger.Logger) *services.ExpirySweeper {
			return services.NewExpirySweeper(ledger, pub, nil, log)
		},
		func(cfg *config.Config, sweeper *services.ExpirySweeper, log mylogger.Logger) *jobs.Manager {
			return jobs.NewManager(jobs.New(expirySweepJob, cfg.Dispatch.ExpirySweepInterval, sweeper.Sweep, log))
		},
		func(o *services.Orchestrator, r *services.ResponseResolver, log mylogger.Logger) *consumer.Consumers {
			return consumer.New(o, r, log)
		},
	)
}

func registerHTTP(c *dig.Container) error {
	return provideAll(c,
		func(o *services.Orchestrator, r *services.ResponseResolver, ledger *services.AssignmentLedger, log mylogger.Logger) *handle.AssignmentHandler {
			return handle.NewAssignmentHandler(o, r, ledger, log)
		},
		func(repo *db.AssignmentRepo, d *ws.Dispatcher, log mylogger.Logger) *handle.OverviewHandler {
			return handle.NewOverviewHandler(services.NewOverviewService(repo, d, nil, log), log)
		},
		func(cfg *config.Config) *middleware.AuthMiddleware {
			return middleware.NewAuthMiddleware(cfg.App.DriverJwtSecret, cfg.App.ServiceApiKey)
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
		func(
			h *handle.AssignmentHandler,
			ov *handle.OverviewHandler,
			d *ws.Dispatcher,
			auth *middleware.AuthMiddleware,
			hm *metrics.HTTP,
			reg *prometheus.Registry,
			checks myhttp.HealthChecks,
		) http.Handler {
			return myhttp.NewRouter(h, ov, d, auth, hm, reg, checks)
		},
		func(cfg *config.Config, h http.Handler, log mylogger.Logger) *httpserver.Server {
			return httpserver.NewServer(cfg.Srv.AssignmentServicePort, h, log)
		},
	)
}
