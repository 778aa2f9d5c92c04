// Package app wires storage backends from config. Every binary opens the
// same set: Postgres or memory repositories, and Redis or process-local
// locks and conversation storage.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/conversational-appointment-booking/internal/appointment"
	"github.com/hackgods/conversational-appointment-booking/internal/config"
	"github.com/hackgods/conversational-appointment-booking/internal/conversation"
	"github.com/hackgods/conversational-appointment-booking/internal/db"
	"github.com/hackgods/conversational-appointment-booking/internal/doctor"
	redisclient "github.com/hackgods/conversational-appointment-booking/internal/redis"
)

type Backends struct {
	Pg    *pgxpool.Pool // nil without POSTGRES_DSN
	Redis *redis.Client // nil without REDIS_ADDR

	Doctors            doctor.Repository
	Appointments       appointment.Repository
	SlotLocker         redisclient.Locker
	ConversationLocker redisclient.Locker
	Conversations      conversation.Store
}

// Open connects whatever cfg configures and falls back to in-process
// implementations for the rest. Callers must Close the result.
func Open(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.PostgresDSN != "" {
		if cfg.MigrateOnStart {
			if err := db.MigrateUp(cfg.PostgresDSN); err != nil {
				return nil, err
			}
			logger.Info().Msg("migrations applied")
		}

		pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.Pg = pool
		b.Doctors = doctor.NewPgRepository(pool)
		b.Appointments = appointment.NewPgRepository(pool, cfg.Clinic.Location())
		logger.Info().Msg("connected to Postgres")
	} else {
		b.Doctors = doctor.NewMemoryRepository(nil)
		b.Appointments = appointment.NewMemoryRepository()
		logger.Warn().Msg("POSTGRES_DSN not set, using in-memory repositories")
	}

	if cfg.RedisAddr != "" {
		rdb, err := redisclient.Connect(ctx, redisclient.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		b.Redis = rdb
		b.SlotLocker = redisclient.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait)
		b.ConversationLocker = redisclient.NewRedisLocker(rdb, cfg.Conversation.LockTTL, cfg.LockWait)
		b.Conversations = conversation.NewRedisStore(rdb, cfg.Conversation.TTL, nil)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("connected to Redis")
	} else {
		b.SlotLocker = redisclient.NewLocalLocker(cfg.LockWait)
		b.ConversationLocker = redisclient.NewLocalLocker(cfg.LockWait)
		b.Conversations = conversation.NewMemoryStore(cfg.Conversation.TTL)
		logger.Warn().Msg("redis not configured, using process-local locks and conversation storage")
	}

	return b, nil
}

// SeedDoctors upserts the configured roster, or the default one.
func (b *Backends) SeedDoctors(ctx context.Context, cfg config.Config) (int, error) {
	roster, err := doctor.LoadRoster(cfg.Clinic.DoctorRoster, cfg.Clinic.DefaultDuration)
	if err != nil {
		return 0, err
	}
	for _, d := range roster {
		if err := b.Doctors.Upsert(ctx, d); err != nil {
			return 0, fmt.Errorf("upsert doctor %s: %w", d.Name, err)
		}
	}
	return len(roster), nil
}

func (b *Backends) AppointmentSettings(cfg config.Config) appointment.Settings {
	return appointment.Settings{
		Hours:           appointment.ClinicHours{Open: cfg.Clinic.OpenHour, Close: cfg.Clinic.CloseHour},
		Location:        cfg.Clinic.Location(),
		SearchDays:      cfg.Clinic.SearchDays,
		DefaultDuration: cfg.Clinic.DefaultDuration,
	}
}

func (b *Backends) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	if b.Pg != nil {
		b.Pg.Close()
	}
}
