package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matthewbaird/contractwizard/internal/config"
	"github.com/matthewbaird/contractwizard/internal/definition"
	"github.com/matthewbaird/contractwizard/internal/derive"
	"github.com/matthewbaird/contractwizard/internal/draft"
	"github.com/matthewbaird/contractwizard/internal/eventbus"
	"github.com/matthewbaird/contractwizard/internal/logging"
	"github.com/matthewbaird/contractwizard/internal/server"
	"github.com/matthewbaird/contractwizard/internal/service"
	"github.com/matthewbaird/contractwizard/internal/session"
	"github.com/matthewbaird/contractwizard/internal/submit"
	"github.com/matthewbaird/contractwizard/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the wizard HTTP and live service",
		Long:  "Run the wizard service. Settings come from WIZARD_* environment variables.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, origins)
		},
	}
	cmd.Flags().StringSliceVar(&origins, "allowed-origin", nil, "origin pattern accepted by the live WebSocket channel (repeatable)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, origins []string) error {
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.WithoutCancel(ctx)) }()

	def, err := definition.Default()
	if err != nil {
		return err
	}
	policy, err := derive.ParseMonthPolicy(cfg.MonthPolicy)
	if err != nil {
		return err
	}

	drafts, closeDrafts, err := openDrafts(ctx, cfg.DraftDSN)
	if err != nil {
		return err
	}
	defer closeDrafts()

	bus := eventbus.New(cfg.EventBufferSize, log)
	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	if cfg.NATSURL != "" {
		nc, err := eventbus.Connect(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		bus.Subscribe("nats", eventbus.NewNATSConsumer(nc))
		log.Info("publishing events to nats", zap.String("url", nc.ConnectedUrlRedacted()))
	}

	sessions := session.NewManager(cfg.SessionMaxAge, cfg.SessionIdle)
	svc := service.New(service.Config{
		Definition: def,
		Sessions:   sessions,
		Submitter:  submit.NewForwarder(cfg.BackendURL, cfg.BackendTimeout),
		Locale:     cfg.Locale,
		Policy:     policy,
		Logger:     log,
		Drafts:     drafts,
		Events:     bus,
	})
	if cfg.BackendURL == "" {
		log.Warn("WIZARD_BACKEND_URL is empty; submissions will fail")
	}

	return server.Run(ctx, server.Config{
		Port:           cfg.Port,
		Service:        svc,
		Sessions:       sessions,
		SweepInterval:  cfg.SessionSweep,
		Logger:         log,
		AllowedOrigins: origins,
		Bus:            bus,
	})
}

func openDrafts(ctx context.Context, dsn string) (draft.Store, func(), error) {
	if dsn == "" {
		return draft.NewMemoryStore(), func() {}, nil
	}
	s, err := draft.OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}
