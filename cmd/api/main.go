package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stock-ledger/internal/app"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/interfaces/events"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar motor de inventario")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Error().Err(err).Msg("cerrar recursos")
		}
	}()

	fiberApp := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	fiberApp.Use(recover.New())

	httpRouter.Router(fiberApp, httpRouter.RouterDeps{
		Engine:      rt.Engine,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
		Ready:       rt.Ready,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP escuchando")
		return fiberApp.Listen(cfg.HTTP.Addr())
	})

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.OrdersTopic != "" {
		reader := events.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic, cfg.Kafka.GroupID)
		listener := events.NewOrderListener(reader, rt.Engine, log, events.ListenerConfig{})
		g.Go(func() error {
			defer listener.Close()
			return listener.Start(gctx)
		})
	}

	if cfg.Ledger.ReaperInterval > 0 {
		g.Go(func() error {
			runReaper(gctx, rt.Engine, log.Component("reaper"), cfg.Ledger.ReaperInterval, cfg.Ledger.ReaperBatch)
			return nil
		})
	}

	// Apagado: señal o fallo de cualquier componente
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("apagando, cerrando servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return fiberApp.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("aplicación finalizada con error")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("aplicación detenida")
}

// runReaper libera reservas vencidas cada interval hasta que ctx se cancele.
func runReaper(ctx context.Context, engine *inventory.Engine, log *logger.Logger, interval time.Duration, batch int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := engine.ReleaseExpiredReservations(ctx, batch)
			if err != nil {
				log.Error().Err(err).Int("released", n).Msg("reaper de reservas")
				continue
			}
			if n > 0 {
				log.Info().Int("released", n).Msg("reservas vencidas liberadas")
			}
		}
	}
}
