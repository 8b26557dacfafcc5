package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/dexkeeper/fee-liquidator/dex/ethdex"
	"github.com/dexkeeper/fee-liquidator/liquidator/config"
	"github.com/dexkeeper/fee-liquidator/liquidator/manager"
	"github.com/dexkeeper/fee-liquidator/liquidator/models"
	"github.com/dexkeeper/fee-liquidator/liquidator/router"
	"github.com/dexkeeper/fee-liquidator/liquidator/rpc"
)

var log zerolog.Logger

func init() {
	// Initialize zerolog with console writer
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Logger()

	// Share the logger with the RPC package
	rpc.SetLogger(log)
}

func main() {
	configService := flag.String("config-service", "./service-config.toml", "config file for the admin server")
	configKeeper := flag.String("config-keeper", "./keeper-config.toml", "config file for the chain and manager")
	flag.Parse()

	log.Info().
		Str("service_config", *configService).
		Str("keeper_config", *configKeeper).
		Msg("Starting fee liquidator")

	// An empty -config-service switches the loader to env-only mode.
	var servicePath *string
	if *configService != "" {
		servicePath = configService
	}
	serviceConfig, err := config.LoadServiceConfig(servicePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load service config")
	}

	keeper, err := config.LoadKeeperConfig(*configKeeper)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load keeper config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exchange, err := ethdex.NewClient(ctx, keeper.Exchange)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the exchange")
	}
	defer exchange.Close()

	store, err := manager.NewStore(keeper.Owner, keeper.Intermediates, keeper.Slippage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create configuration store")
	}
	metrics := router.NewMetrics(prometheus.DefaultRegisterer)
	liquidator := router.NewLiquidator(store, exchange,
		router.WithMetrics(metrics),
		router.WithBatchCompleted(func(event models.BatchEvent) {
			log.Info().
				Int("positions", len(event.Positions)).
				Str("recipient", event.Recipient.Hex()).
				Time("completed_at", event.CompletedAt).
				Msg("Batch committed")
		}),
	)

	server := rpc.NewServer(serviceConfig, liquidator, store)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("Server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
}
