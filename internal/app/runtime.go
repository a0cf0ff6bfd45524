// Package app arma el motor de inventario a partir de la configuración (backends de ledger, bloqueo y alertas).
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/lock"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/notify"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Runtime motor listo para usar más los recursos que hay que cerrar al salir.
type Runtime struct {
	Engine *inventory.Engine

	pool    *pgxpool.Pool
	redis   *redis.Client
	closers []func() error
}

// Build conecta los backends configurados. Ante error cierra lo que ya abrió.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Runtime, error) {
	rt := &Runtime{}
	if err := rt.build(ctx, cfg, log); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) build(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	var err error

	var tx inventory.TxRunner
	switch cfg.Ledger.Store {
	case "memory":
		log.Warn().Msg("ledger en memoria: los datos se pierden al reiniciar")
		tx = memory.NewStore()
	default:
		rt.pool, err = postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		rt.closers = append(rt.closers, func() error { rt.pool.Close(); return nil })
		if cfg.Ledger.AutoMigrate {
			if err := postgres.Migrate(ctx, rt.pool); err != nil {
				return err
			}
			log.Info().Msg("esquema aplicado")
		}
		tx = postgres.NewTxRunner(rt.pool, cfg.Ledger.LockTimeout)
	}

	var locker inventory.Locker
	switch cfg.Lock.Backend {
	case "redis":
		rt.redis, err = lock.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, rt.redis.Close)
		locker = lock.NewRedisLocker(rt.redis, cfg.Lock.Prefix, cfg.Lock.Lease)
	default:
		locker = lock.NewMemoryLocker()
	}

	notifier, err := rt.buildNotifier(ctx, cfg, log)
	if err != nil {
		return err
	}

	rt.Engine = inventory.NewEngine(tx, locker, notifier, log, inventory.EngineConfig{
		LockTimeout:    cfg.Ledger.LockTimeout,
		ReservationTTL: cfg.Ledger.ReservationTTL,
	})
	log.Info().
		Str("ledger_store", cfg.Ledger.Store).
		Str("lock_backend", cfg.Lock.Backend).
		Dur("lock_timeout", cfg.Ledger.LockTimeout).
		Dur("reservation_ttl", cfg.Ledger.ReservationTTL).
		Msg("motor de inventario listo")
	return nil
}

func (rt *Runtime) buildNotifier(ctx context.Context, cfg *config.Config, log *logger.Logger) (inventory.AlertNotifier, error) {
	var fanout notify.Fanout
	if cfg.Alerts.SNSTopicARN != "" {
		sns, err := notify.NewSNSNotifierFromConfig(ctx, notify.SNSConfig{
			Region:          cfg.Alerts.AWSRegion,
			TopicARN:        cfg.Alerts.SNSTopicARN,
			Endpoint:        cfg.Alerts.AWSEndpoint,
			AccessKeyID:     cfg.Alerts.AccessKeyID,
			SecretAccessKey: cfg.Alerts.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		fanout = append(fanout, sns)
		log.Info().Str("topic_arn", cfg.Alerts.SNSTopicARN).Msg("alertas publicadas en SNS")
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.AlertsTopic != "" {
		k := notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.AlertsTopic)
		rt.closers = append(rt.closers, k.Close)
		fanout = append(fanout, k)
		log.Info().Str("topic", cfg.Kafka.AlertsTopic).Msg("alertas publicadas en Kafka")
	}
	if len(fanout) == 0 {
		return nil, nil
	}
	return fanout, nil
}

// Ready verifica las conexiones externas (health check).
func (rt *Runtime) Ready(ctx context.Context) error {
	if rt.pool != nil {
		if err := rt.pool.Ping(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	if rt.redis != nil {
		if err := rt.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close libera en orden inverso al de apertura.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
