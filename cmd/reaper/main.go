// Command reaper libera una vez las reservas vencidas y termina. Pensado para cron/Kubernetes CronJob
// cuando la API corre con REAPER_INTERVAL=0.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/stock-ledger/internal/app"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	batch := flag.Int("batch", 0, "máximo de reservas por ejecución (0 = REAPER_BATCH)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	if *batch > 0 {
		cfg.Ledger.ReaperBatch = *batch
	}
	// El reaper nunca migra: eso lo hace la API
	cfg.Ledger.AutoMigrate = false

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name}).Component("reaper")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar motor de inventario")
	}
	defer rt.Close()

	n, err := rt.Engine.ReleaseExpiredReservations(ctx, cfg.Ledger.ReaperBatch)
	if err != nil {
		log.Error().Err(err).Int("released", n).Msg("reaper de reservas")
		_ = rt.Close()
		stop()
		os.Exit(1)
	}
	log.Info().Int("released", n).Msg("reservas vencidas liberadas")
}
