package identityservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/bm"
	"food-dispatch/internal/config"
	"food-dispatch/internal/httpserver"
	"food-dispatch/internal/identity-service/adapters/driven/consumer"
	"food-dispatch/internal/identity-service/adapters/driven/db"
	"food-dispatch/internal/jobs"
	"food-dispatch/internal/mylogger"
	"food-dispatch/internal/postgres"

	"go.uber.org/dig"
)

const shutdownTimeout = 15 * time.Second

type app struct {
	dig.In

	Config    *config.Config
	DB        *postgres.DB
	Repo      *db.IdentityRepo
	Broker    *broker
	Consumers *consumer.Consumers
	Jobs      *jobs.Manager
	Server    *httpserver.Server
	Log       mylogger.Logger
}

// Run starts the identity service and blocks until ctx is done.
func Run(ctx context.Context, log mylogger.Logger, cfg *config.Config) error {
	container, err := buildContainer(ctx, cfg, log)
	if err != nil {
		return err
	}
	return container.Invoke(func(rt app) error {
		return serve(ctx, rt)
	})
}

func serve(ctx context.Context, rt app) error {
	log := rt.Log.Action("identity_service")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer rt.DB.Close()

	if err := rt.Repo.EnsureSchema(ctx); err != nil {
		return err
	}

	var router *bm.Router
	if rt.Broker.conn != nil {
		defer rt.Broker.conn.Close()

		router = bm.NewRouter(rt.Broker.conn, rt.Log)
		router.RequeueAfter(rt.Config.Messaging.RequeueDelay)
		rt.Consumers.Register(router)
		if err := router.Run(ctx); err != nil {
			return fmt.Errorf("start consumers: %w", err)
		}
	}

	if err := rt.Jobs.StartAll(ctx); err != nil {
		return err
	}

	runErr := rt.Server.Run(ctx)
	if runErr != nil {
		log.Error("server stopped", runErr)
	}
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()

	stopErr := rt.Server.Stop(stopCtx)
	rt.Jobs.StopAll()
	if router != nil {
		router.Wait()
	}
	log.Info("identity service stopped")

	return errors.Join(runErr, stopErr)
}
