package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/config"
	"github.com/hackgods/consultation-dashboard/internal/consultation"
	"github.com/hackgods/consultation-dashboard/internal/db"
	"github.com/hackgods/consultation-dashboard/internal/logging"
	"github.com/hackgods/consultation-dashboard/internal/schedule"
)

func main() {
	nurses := flag.Int("nurses", 5, "number of nurses to create")
	perNurse := flag.Int("consultations", 20, "consultations per nurse, spread over this week and the next")
	notifications := flag.Int("notifications", 8, "notifications per nurse")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.RequirePostgres(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		logger.Fatal("invalid TIMEZONE", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{ApplicationName: "seed", MaxConns: 2})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("apply schema", zap.Error(err))
	}

	_ = gofakeit.Seed(time.Now().UnixNano())

	s := seeder{
		pool:      pool,
		logger:    logger,
		loc:       loc,
		week:      schedule.NewWeekBuilder(loc, schedule.LookupLocale(cfg.Schedule.Locale)),
		slots:     schedule.DefaultSlots(),
		writeSkew: cfg.Notify.WriteSkew,
	}

	ids, err := s.seedNurses(ctx, *nurses)
	if err != nil {
		logger.Fatal("seed nurses", zap.Error(err))
	}
	for _, id := range ids {
		if err := s.seedConsultations(ctx, id, *perNurse); err != nil {
			logger.Fatal("seed consultations", zap.String("nurse_id", id.String()), zap.Error(err))
		}
		if err := s.seedNotifications(ctx, id, *notifications); err != nil {
			logger.Fatal("seed notifications", zap.String("nurse_id", id.String()), zap.Error(err))
		}
	}

	logger.Info("seed complete", zap.Int("nurses", len(ids)))
	for _, id := range ids {
		fmt.Printf("NURSE_ID=%s\n", id)
	}
}

type seeder struct {
	pool      *pgxpool.Pool
	logger    *zap.Logger
	loc       *time.Location
	week      schedule.WeekBuilder
	slots     []schedule.TimeSlot
	writeSkew time.Duration
}

func (s seeder) seedNurses(ctx context.Context, count int) ([]uuid.UUID, error) {
	s.logger.Info("seeding nurses", zap.Int("count", count))

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO nurses (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, gofakeit.Name(), gofakeit.Email())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// seedConsultations books random free cells of this week and the next.
// Some cells get a second booking so the grid tie-break is visible.
func (s seeder) seedConsultations(ctx context.Context, nurseID uuid.UUID, count int) error {
	statuses := []consultation.Status{
		consultation.StatusPending,
		consultation.StatusPending,
		consultation.StatusApproved,
		consultation.StatusApproved,
		consultation.StatusCompleted,
		consultation.StatusCancelled,
	}

	this := s.week.Build(time.Now().In(s.loc))
	next := s.week.Build(this[0].Date.AddDate(0, 0, schedule.DaysPerWeek))
	days := append(this[:], next[:]...)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		day := days[gofakeit.Number(0, len(days)-1)]
		slot := s.slots[gofakeit.Number(0, len(s.slots)-1)]
		status := statuses[gofakeit.Number(0, len(statuses)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO consultations (id, nurse_id, patient_id, patient_name, scheduled_time, end_time, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		`, uuid.New(), nurseID, uuid.New(), gofakeit.Name(), slot.Start(day), slot.End(day), status, gofakeit.Sentence(8))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s seeder) seedNotifications(ctx context.Context, nurseID uuid.UUID, count int) error {
	titles := []string{
		"New consultation booked",
		"Consultation approved",
		"Consultation cancelled by patient",
		"Lab results available",
		"Schedule change",
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		age := time.Duration(gofakeit.Number(0, 10*24*60)) * time.Minute
		createdAt := time.Now().Add(-age).Add(s.writeSkew).UTC()

		_, err := tx.Exec(ctx, `
			INSERT INTO notifications (id, message_id, audience, title, message, type, is_read, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New(), uuid.New(), nurseID.String(), titles[gofakeit.Number(0, len(titles)-1)],
			gofakeit.Sentence(12), "consultation", gofakeit.Bool(), createdAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
