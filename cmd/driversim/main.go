package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-dispatch/internal/identity-service/core/domain/dto"
	"food-dispatch/internal/mylogger"

	"github.com/spf13/cobra"
)

func main() {
	var (
		opts        Options
		secret      string
		logLevel    string
		identityURL string
		username    string
		vehicleType string
	)

	cmd := &cobra.Command{
		Use:          "driversim",
		Short:        "Connect as a driver and answer pushed order offers",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := mylogger.New("driversim", logLevel)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if username != "" {
				id, err := register(ctx, &http.Client{Timeout: 5 * time.Second}, identityURL, dto.RegisterRequest{
					Username:      username,
					FirstName:     "Sim",
					LastName:      "Driver",
					PhoneNumber:   "+94700000000",
					LicenseNumber: "SIM-" + username,
					Vehicle:       &dto.VehicleDto{Type: vehicleType},
				})
				if err != nil {
					return err
				}
				log.Action("registered").Info("driver registered",
					"provisional_id", id.ProvisionalID, "status", id.ReconciliationStatus)
				if opts.DriverID == "" {
					opts.DriverID = id.DriverID
				}
			}

			if opts.DriverID == "" {
				return errors.New("--driver or --register-as is required")
			}
			if opts.Token == "" {
				if secret == "" {
					return errors.New("--token or --secret is required")
				}
				if opts.Token, err = mintToken(secret, opts.DriverID, time.Hour); err != nil {
					return fmt.Errorf("mint token: %w", err)
				}
			}
			return NewSimulator(opts, log).Run(ctx)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.BaseURL, "url", "ws://localhost:3000", "assignment service websocket base URL")
	f.StringVar(&opts.DriverID, "driver", "", "driver id to connect as")
	f.StringVar(&opts.Token, "token", "", "driver bearer token")
	f.StringVar(&secret, "secret", os.Getenv("DRIVER_JWT_SECRET"), "sign a token locally with this secret")
	f.Float64Var(&opts.AcceptRatio, "accept-ratio", 1, "share of offers to accept, 0..1")
	f.DurationVar(&opts.Delay, "delay", time.Second, "think time before answering an offer")
	f.StringVar(&logLevel, "log-level", "INFO", "log level")
	f.StringVar(&identityURL, "identity-url", "http://localhost:3002", "identity service base URL")
	f.StringVar(&username, "register-as", "", "self-register with this username before connecting")
	f.StringVar(&vehicleType, "vehicle-type", "MOTORBIKE", "vehicle type used when registering")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
