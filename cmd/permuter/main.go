package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harshanavkis/crashmonkey/internal/config"
	"github.com/harshanavkis/crashmonkey/internal/metrics"
	"github.com/harshanavkis/crashmonkey/internal/model"
	"github.com/harshanavkis/crashmonkey/internal/permuter"
	"github.com/harshanavkis/crashmonkey/internal/server"
	"github.com/harshanavkis/crashmonkey/internal/strategy"
	"github.com/harshanavkis/crashmonkey/internal/trace"
	"github.com/harshanavkis/crashmonkey/internal/util/workerpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// writeSummary is one replayable write of a generated crash state, payload
// omitted
type writeSummary struct {
	BioIndex       uint64 `json:"bio_index"`
	BioSectorIndex uint64 `json:"bio_sector_index"`
	DiskOffset     uint64 `json:"disk_offset"`
	Size           uint64 `json:"size"`
	WholeOp        bool   `json:"whole_op"`
}

// stateSummary describes one generated crash state
type stateSummary struct {
	State          int            `json:"state"`
	LastCheckpoint int            `json:"last_checkpoint"`
	Writes         []writeSummary `json:"writes"`
}

// jobResult collects the outcome of one enumeration job
type jobResult struct {
	JobID       int            `json:"job_id"`
	Mode        string         `json:"mode"`
	Granularity string         `json:"granularity"`
	Seed        int64          `json:"seed"`
	Exhausted   bool           `json:"exhausted"`
	States      []stateSummary `json:"states"`
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("profile", cfg.Profile.Path),
		zap.String("mode", cfg.Permute.Mode),
		zap.String("granularity", cfg.Permute.Granularity),
		zap.Int("jobs", cfg.Permute.Jobs),
		zap.Int("states_per_job", cfg.Permute.States))

	reader := trace.NewReader(logger)
	workload, err := reader.ReadProfile(cfg.Profile.Path)
	if err != nil {
		logger.Fatal("Failed to load workload profile", zap.Error(err))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(fmt.Sprintf("%d", os.Getpid()))
		ms := server.NewMetricsServer(
			&server.MetricsServerConfig{Port: cfg.Metrics.Port, Path: cfg.Metrics.Path},
			m, logger)
		if err := ms.Start(); err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		} else {
			defer ms.Stop()
		}
		reportTraceStats(cfg, workload, m, logger)
	}

	// Cancel in-flight jobs on SIGINT/SIGTERM; whatever was generated so
	// far is still written out.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		logger.Info("Shutting down, finishing current states...")
		cancel()
	}()

	pool := workerpool.NewWorkerPool(&workerpool.Config{
		Name:       "enumeration",
		MaxWorkers: cfg.Workers.MaxWorkers,
		QueueSize:  cfg.Workers.QueueSize,
		Logger:     logger,
	})

	var (
		mu      sync.Mutex
		results []jobResult
	)
	for j := 0; j < cfg.Permute.Jobs; j++ {
		jobID := j
		task := workerpool.Task{
			ID:      fmt.Sprintf("job-%d", jobID),
			Context: ctx,
			Fn: func(ctx context.Context) error {
				res, err := runJob(ctx, jobID, cfg, workload, m, logger)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				return err
			},
		}
		if err := pool.Submit(ctx, task); err != nil {
			logger.Error("Failed to submit job", zap.Int("job_id", jobID), zap.Error(err))
		}
	}

	pool.Wait()
	if err := pool.Stop(30 * time.Second); err != nil {
		logger.Warn("Worker pool did not stop cleanly", zap.Error(err))
	}

	if err := writeResults(cfg.Permute.OutputPath, results); err != nil {
		logger.Fatal("Failed to write results", zap.Error(err))
	}

	total := 0
	for _, r := range results {
		total += len(r.States)
	}
	logger.Info("Enumeration finished",
		zap.Int("jobs", len(results)),
		zap.Int("crash_states", total),
		zap.String("output", cfg.Permute.OutputPath))
}

// runJob drives one permuter instance through up to cfg.Permute.States
// distinct crash states. Each job owns its instance; permuters are not
// safe to share between workers.
func runJob(
	ctx context.Context,
	jobID int,
	cfg *config.Config,
	workload []model.BlockWrite,
	m *metrics.Metrics,
	logger *zap.Logger,
) (jobResult, error) {
	seed := cfg.Permute.Seed + int64(jobID)
	p := permuter.NewPermuter(strategy.NewRandom(seed), logger)

	switch cfg.Permute.Mode {
	case "soft":
		p.InitDataVectorSoft(cfg.Profile.SectorSize, workload)
	default:
		p.InitDataVector(cfg.Profile.SectorSize, workload)
	}

	res := jobResult{
		JobID:       jobID,
		Mode:        cfg.Permute.Mode,
		Granularity: cfg.Permute.Granularity,
		Seed:        seed,
	}

	for s := 0; s < cfg.Permute.States; s++ {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		var pr model.PermuteResult
		start := time.Now()

		var (
			ok         bool
			crashState []model.DiskWriteData
		)
		if cfg.Permute.Granularity == "sector" {
			ok, crashState = p.GenerateSectorCrashState(&pr)
		} else {
			ok, crashState = p.GenerateCrashState(&pr)
		}

		if !ok {
			res.Exhausted = true
			if m != nil {
				m.RecordExhaustedJob()
			}
			logger.Info("Job exhausted crash state space",
				zap.Int("job_id", jobID),
				zap.Int("distinct_states", p.CompletedStates()))
			break
		}

		if m != nil {
			m.RecordCrashState(cfg.Permute.Granularity, time.Since(start).Seconds(), len(crashState))
		}
		res.States = append(res.States, summarize(s, &pr))
	}

	return res, nil
}

// summarize strips payloads from a generated state for the JSON report
func summarize(state int, pr *model.PermuteResult) stateSummary {
	sum := stateSummary{
		State:          state,
		LastCheckpoint: pr.LastCheckpoint,
		Writes:         make([]writeSummary, len(pr.CrashState)),
	}
	for i, w := range pr.CrashState {
		sum.Writes[i] = writeSummary{
			BioIndex:       w.BioIndex,
			BioSectorIndex: w.BioSectorIndex,
			DiskOffset:     w.DiskOffset,
			Size:           w.Size,
			WholeOp:        w.IsWholeOp,
		}
	}
	return sum
}

// reportTraceStats segments the workload once to publish trace-shape
// gauges
func reportTraceStats(cfg *config.Config, workload []model.BlockWrite, m *metrics.Metrics, logger *zap.Logger) {
	p := permuter.NewPermuter(strategy.NewInOrder(), logger)
	if cfg.Permute.Mode == "soft" {
		p.InitDataVectorSoft(cfg.Profile.SectorSize, workload)
	} else {
		p.InitDataVector(cfg.Profile.SectorSize, workload)
	}

	ops, overlapping := 0, 0
	for _, e := range p.Epochs() {
		ops += len(e.Ops)
		if e.Overlaps {
			overlapping++
		}
	}
	m.UpdateTraceStats(len(workload), len(p.Epochs()), ops, overlapping)
}

// writeResults writes the JSON summary of all jobs
func writeResults(path string, results []jobResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// initLogger initializes the zap logger from config
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
