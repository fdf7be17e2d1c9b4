package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/AlexZinkM/walletlink/docs"
	"github.com/AlexZinkM/walletlink/internal/api"
	"github.com/AlexZinkM/walletlink/internal/client"
	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/database"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/events"
	"github.com/AlexZinkM/walletlink/internal/handler"
	"github.com/AlexZinkM/walletlink/internal/logging"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/internal/store"
	"github.com/AlexZinkM/walletlink/internal/tip"
	"github.com/AlexZinkM/walletlink/internal/wallet"

	"github.com/spf13/cobra"
)

const keyringService = "walletlink"

var noStation bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the wallet redirect target",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, config.Get())
	},
}

func init() {
	serveCmd.Flags().BoolVar(&noStation, "no-station", false, "do not follow the station event channel")
}

// openSessionStore returns the configured session store, prompting for the password when file based
func openSessionStore(cfg *config.Config) (store.SessionStore, error) {
	if cfg.SessionStore == "keyring" {
		return store.NewKeyringStore(keyringService, "session"), nil
	}
	if err := config.PromptForPassword(); err != nil {
		return nil, err
	}
	return store.NewFileStore(cfg.SessionFilePath, config.GetSessionPasswordBytes), nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	sessions, err := openSessionStore(cfg)
	if err != nil {
		return err
	}

	db, err := database.NewSQLiteManager(cfg.ReceiptsDBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	alerts := logging.NewAlertLog(logger, 20)
	links := deeplink.NewLinks(deeplink.LinkConfig{
		WalletHost:        cfg.WalletHost,
		UseUniversalLinks: cfg.UseUniversalLinks,
		Cluster:           cfg.Cluster,
		AppURL:            cfg.AppURL,
		RedirectBaseURL:   cfg.RedirectBaseURL,
	})
	registry := deeplink.NewRegistry(links)
	gateway := deeplink.NewGateway(registry, logger)

	var next deeplink.Opener
	if cfg.OpenBrowser {
		next = deeplink.BrowserOpener{}
	}
	handoff := deeplink.NewHandoff(next)

	chain := client.NewSolanaClient(config.GetSolanaRPCURL(), cfg.ConfirmTimeout, logger)
	machine := wallet.New(wallet.Deps{
		Links:          links,
		Registry:       registry,
		Opener:         handoff,
		Chain:          chain,
		Notifier:       alerts,
		Logger:         logger,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	machine.Register(gateway)

	backend := client.NewBackendClient(config.GetAPIBaseURL(), cfg.HTTPTimeout, logger)
	manager := session.New(backend, machine, sessions, alerts, logger)
	if err := manager.Load(ctx); err != nil {
		logger.WithError(err).Warn("starting signed out")
	}

	tips := tip.New(backend, machine, db, alerts, logger, tip.Config{Destination: cfg.TipDestination})

	var tracks handler.TrackSource
	if !noStation {
		station := events.NewClient(cfg.StationWSURL, nil, logger)
		go station.Run(ctx)
		tracks = station
	}

	router := api.SetupRouter(api.Handlers{
		Wallet: handler.NewWalletHandler(machine, gateway, handoff, chain, alerts, logger),
		Tip:    handler.NewTipHandler(tips, db, tracks),
		Fees:   handler.NewFeesHandler(client.NewCoinGeckoClient(cfg.HTTPTimeout), logger),
		Auth:   handler.NewAuthHandler(manager),
	}, logger)

	srv := &http.Server{
		Addr:              ":" + config.GetPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).Info("walletlink listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	registry.Clear()
	return srv.Shutdown(shutdownCtx)
}
