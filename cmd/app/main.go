package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	assignmentservice "food-dispatch/internal/assignment-service"
	"food-dispatch/internal/config"
	identityservice "food-dispatch/internal/identity-service"
	"food-dispatch/internal/mylogger"

	"github.com/spf13/cobra"
)

type runFunc func(ctx context.Context, log mylogger.Logger, cfg *config.Config) error

func main() {
	rootCmd := &cobra.Command{
		Use:          "food-dispatch",
		Short:        "Order-to-driver dispatch services",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serviceCmd("assignment-service", "Run the assignment service",
		func(cfg *config.Config, port string) { cfg.Srv.AssignmentServicePort = port },
		assignmentservice.Run))
	rootCmd.AddCommand(serviceCmd("identity-service", "Run the driver identity service",
		func(cfg *config.Config, port string) { cfg.Srv.IdentityServicePort = port },
		identityservice.Run))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serviceCmd(name, short string, setPort func(*config.Config, string), run runFunc) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port != "" {
				setPort(cfg, port)
			}

			log, err := mylogger.New(name, cfg.Log.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Action("service_started").Info("starting", "service", name)
			return run(ctx, log, cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "HTTP port, overrides the configured one")
	return cmd
}
