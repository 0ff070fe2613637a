package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hackgods/consultation-dashboard/internal/api"
	"github.com/hackgods/consultation-dashboard/internal/config"
	"github.com/hackgods/consultation-dashboard/internal/consultation"
	"github.com/hackgods/consultation-dashboard/internal/db"
	"github.com/hackgods/consultation-dashboard/internal/httpclient"
	"github.com/hackgods/consultation-dashboard/internal/logging"
)

// SimConfig drives a contention run against consultation-api: many workers
// race status changes on a small set of consultations while others read.
type SimConfig struct {
	APIBaseURL        string
	Duration          time.Duration
	Workers           int
	TransitionRatio   float64
	MarkReadRatio     float64
	ReadRatio         float64
	ConsultationLimit int
	PostgresDSN       string
}

type target struct {
	ID      uuid.UUID
	NurseID uuid.UUID
}

type DataPool struct {
	Consultations []target
	Nurses        []uuid.UUID

	mu       sync.RWMutex
	messages []uuid.UUID // unread message ids seen by readers
}

func (dp *DataPool) AddMessages(ids []uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.messages = append(dp.messages, ids...)
}

func (dp *DataPool) TakeMessage(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.messages) == 0 {
		return uuid.Nil, false
	}
	idx := rng.Intn(len(dp.messages))
	id := dp.messages[idx]
	dp.messages[idx] = dp.messages[len(dp.messages)-1]
	dp.messages = dp.messages[:len(dp.messages)-1]
	return id, true
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *httpclient.Client
	logger  *zap.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger, err := logging.New(baseCfg.Env, baseCfg.Log)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := loadConfig(baseCfg)
	if err := validateConfig(cfg); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	logger.Info("simulator starting",
		zap.String("api", cfg.APIBaseURL),
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("transition_ratio", cfg.TransitionRatio),
		zap.Float64("mark_read_ratio", cfg.MarkReadRatio),
		zap.Float64("read_ratio", cfg.ReadRatio),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{ApplicationName: "simulate", MaxConns: 2})
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		logger.Fatal("load data pool", zap.Error(err))
	}
	logger.Info("data pool loaded",
		zap.Int("consultations", len(dataPool.Consultations)),
		zap.Int("nurses", len(dataPool.Nurses)),
	)

	client, err := httpclient.New(cfg.APIBaseURL, baseCfg.RequestTimeout)
	if err != nil {
		logger.Fatal("invalid SIM_API_BASE_URL", zap.Error(err))
	}

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: client,
		logger: logger,
	}

	sim.Run()
	writeReport(os.Stdout, cfg.Duration, cfg.Workers, &sim.metrics)
}

func loadConfig(base config.Config) SimConfig {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SIM_API_BASE_URL", "http://localhost:8080")
	v.SetDefault("SIM_DURATION", 30*time.Second)
	v.SetDefault("SIM_WORKERS", 10)
	v.SetDefault("SIM_TRANSITION_RATIO", 0.5)
	v.SetDefault("SIM_MARK_READ_RATIO", 0.1)
	v.SetDefault("SIM_READ_RATIO", 0.4)
	v.SetDefault("SIM_CONSULTATION_LIMIT", 50)

	cfg := SimConfig{
		APIBaseURL:        v.GetString("SIM_API_BASE_URL"),
		Duration:          v.GetDuration("SIM_DURATION"),
		Workers:           v.GetInt("SIM_WORKERS"),
		TransitionRatio:   v.GetFloat64("SIM_TRANSITION_RATIO"),
		MarkReadRatio:     v.GetFloat64("SIM_MARK_READ_RATIO"),
		ReadRatio:         v.GetFloat64("SIM_READ_RATIO"),
		ConsultationLimit: v.GetInt("SIM_CONSULTATION_LIMIT"),
		PostgresDSN:       base.PostgresDSN,
	}

	total := cfg.TransitionRatio + cfg.MarkReadRatio + cfg.ReadRatio
	if total > 0 {
		cfg.TransitionRatio /= total
		cfg.MarkReadRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return errors.New("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return errors.New("SIM_DURATION must be > 0")
	}
	if cfg.ConsultationLimit <= 0 {
		return errors.New("SIM_CONSULTATION_LIMIT must be > 0")
	}
	return nil
}

// loadDataPool picks consultations that can still change status. A small
// limit concentrates workers on the same rows.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, nurse_id FROM consultations
		WHERE status IN ('pending', 'approved')
		ORDER BY scheduled_time
		LIMIT $1
	`, cfg.ConsultationLimit)
	if err != nil {
		return nil, fmt.Errorf("load consultations: %w", err)
	}
	defer rows.Close()

	dataPool := &DataPool{}
	seen := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.ID, &t.NurseID); err != nil {
			return nil, err
		}
		dataPool.Consultations = append(dataPool.Consultations, t)
		if _, ok := seen[t.NurseID]; !ok {
			seen[t.NurseID] = struct{}{}
			dataPool.Nurses = append(dataPool.Nurses, t.NurseID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load consultations: %w", err)
	}

	if len(dataPool.Consultations) == 0 {
		return nil, errors.New("no active consultations loaded, run cmd/seed first")
	}
	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("simulation running")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.TransitionRatio:
			s.doTransition(ctx, rng)
		case r < s.config.TransitionRatio+s.config.MarkReadRatio:
			s.doMarkRead(ctx, rng)
		default:
			if rng.Intn(2) == 0 {
				s.doListByNurse(ctx, rng)
			} else {
				s.doListNotifications(ctx, rng)
			}
		}
	}
}

var targetStatuses = []consultation.Status{
	consultation.StatusApproved,
	consultation.StatusCompleted,
	consultation.StatusCancelled,
}

// doTransition asks for a random next status without knowing the current
// one, so rejected transitions and lock contention both count as conflicts.
func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand) {
	t := s.pool.Consultations[rng.Intn(len(s.pool.Consultations))]
	to := targetStatuses[rng.Intn(len(targetStatuses))]

	start := time.Now()
	_, err := s.client.Do(ctx, http.MethodPut, "/consultations/status/"+t.ID.String(), nil,
		api.UpdateStatusRequest{Status: string(to)})
	s.record(ctx, &s.metrics.Transition, start, err)
}

func (s *Simulator) doListByNurse(ctx context.Context, rng *rand.Rand) {
	nurseID := s.pool.Nurses[rng.Intn(len(s.pool.Nurses))]

	start := time.Now()
	_, err := s.client.Do(ctx, http.MethodGet, "/consultations/nurse/"+nurseID.String(), nil, nil)
	s.record(ctx, &s.metrics.ListByNurse, start, err)
}

func (s *Simulator) doListNotifications(ctx context.Context, rng *rand.Rand) {
	nurseID := s.pool.Nurses[rng.Intn(len(s.pool.Nurses))]

	start := time.Now()
	raw, err := s.client.Do(ctx, http.MethodGet,
		"/notifications/warehouse?for="+url.QueryEscape(nurseID.String()), nil, nil)
	s.record(ctx, &s.metrics.Notifications, start, err)
	if err != nil {
		return
	}

	var list []api.NotificationResponse
	if !httpclient.DecodeData(raw, &list) {
		return
	}
	unread := make([]uuid.UUID, 0, len(list))
	for _, n := range list {
		if n.IsRead {
			continue
		}
		if id, err := uuid.Parse(n.MessageID); err == nil {
			unread = append(unread, id)
		}
	}
	s.pool.AddMessages(unread)
}

func (s *Simulator) doMarkRead(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.TakeMessage(rng)
	if !ok {
		s.doListNotifications(ctx, rng)
		return
	}

	start := time.Now()
	_, err := s.client.Do(ctx, http.MethodPost, "/notifications/read", nil,
		api.MarkReadRequest{MessageID: id.String()})
	s.record(ctx, &s.metrics.MarkRead, start, err)
}

// record skips calls cut short by the end of the run.
func (s *Simulator) record(ctx context.Context, om *OperationMetrics, start time.Time, err error) {
	if err != nil && ctx.Err() != nil {
		return
	}
	latency := time.Since(start)

	outcome := classify(err)
	if outcome == OutcomeError {
		s.logger.Debug("request failed", zap.Error(err))
	}
	om.Record(latency, outcome)
}

func classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if apiErr, ok := httpclient.AsAPIError(err); ok && apiErr.StatusCode == http.StatusConflict {
		return OutcomeConflict
	}
	return OutcomeError
}
