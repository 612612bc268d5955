// Package daemon provides the long-running background service: scheduled
// repository scans, budget-gate alerts, and an HTTP/SSE estimate API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/verdantlabs/ecoburn/internal/compute"
	"github.com/verdantlabs/ecoburn/internal/config"
	"github.com/verdantlabs/ecoburn/internal/finops"
	"github.com/verdantlabs/ecoburn/internal/scan"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Addr string

	// ScanDir enables scheduled rescans when non-empty.
	ScanDir  string
	ScanCron string        // cron spec; empty falls back to Interval ticking
	Interval time.Duration // used only when ScanCron is empty
	Include  []string
	Exclude  []string

	GPUKey      string
	Region      string
	BudgetLimit float64 // 0 = unlimited
	CarbonLimit float64

	Catalog      map[string]finops.ModelPricing
	Advisor      finops.Advisor
	EventsBuffer int

	TelegramToken  string
	TelegramChatID int64
}

// Snapshot is a compact scan state for status/event payloads.
type Snapshot struct {
	At              time.Time `json:"at"`
	FilesScanned    int       `json:"files_scanned"`
	MLFiles         int       `json:"ml_files"`
	TrainingFiles   int       `json:"training_files"`
	Complexity      int       `json:"complexity"`
	EstimatedCost   float64   `json:"estimated_cost_usd"`
	EstimatedCarbon float64   `json:"estimated_carbon_kg"`
	EstimatedHours  float64   `json:"estimated_hours"`
	Passed          bool      `json:"passed"`
}

// Delta captures changes between consecutive scans.
type Delta struct {
	FilesScanned    int     `json:"files_scanned"`
	MLFiles         int     `json:"ml_files"`
	TrainingFiles   int     `json:"training_files"`
	EstimatedCost   float64 `json:"estimated_cost_usd"`
	EstimatedCarbon float64 `json:"estimated_carbon_kg"`
	GateChanged     bool    `json:"gate_changed"`
}

func (d Delta) isZero() bool {
	return d.FilesScanned == 0 &&
		d.MLFiles == 0 &&
		d.TrainingFiles == 0 &&
		d.EstimatedCost == 0 &&
		d.EstimatedCarbon == 0 &&
		!d.GateChanged
}

// Event is emitted whenever the scan snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastScanAt      time.Time `json:"last_scan_at"`
	ScanCount       int64     `json:"scan_count"`
	ScanDir         string    `json:"scan_dir,omitempty"`
	ScanCron        string    `json:"scan_cron,omitempty"`
	IntervalSec     int       `json:"interval_sec"`
	GPU             string    `json:"gpu"`
	Region          string    `json:"region"`
	BudgetLimit     float64   `json:"budget_limit"`
	CarbonLimit     float64   `json:"carbon_limit"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	log    *zap.Logger
	gpu    compute.GPUProfile
	notify *Notifier

	mu          sync.RWMutex
	startedAt   time.Time
	lastScanAt  time.Time
	scanCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	lastScan    *scan.Analysis
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config. A nil logger
// disables logging.
func New(cfg Config, log *zap.Logger) *Service {
	if cfg.Interval < time.Minute {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Catalog == nil {
		cfg.Catalog = config.CatalogWith(config.PricingOverrides{})
	}
	if cfg.Advisor == (finops.Advisor{}) {
		cfg.Advisor = finops.DefaultAdvisor()
	}
	if log == nil {
		log = zap.NewNop()
	}

	gpu, ok := compute.LookupGPU(cfg.GPUKey)
	if !ok {
		gpu, _ = compute.LookupGPU(compute.DefaultGPUKey)
	}

	return &Service{
		cfg:       cfg,
		log:       log,
		gpu:       gpu,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts the HTTP endpoints and the scan schedule until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	notify, err := NewNotifier(s.cfg.TelegramToken, s.cfg.TelegramChatID)
	if err != nil {
		s.log.Warn("telegram alerts disabled", zap.Error(err))
	} else {
		s.notify = notify
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/pricing", s.handlePricing)
	mux.HandleFunc("/v1/gpus", s.handleGPUs)
	mux.HandleFunc("/v1/scan", s.handleScan)
	mux.HandleFunc("/v1/simulate", s.handleSimulate)
	mux.HandleFunc("/v1/workflow", s.handleWorkflow)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info("daemon listening",
		zap.String("addr", s.cfg.Addr),
		zap.String("scan_dir", s.cfg.ScanDir),
		zap.String("scan_cron", s.cfg.ScanCron))

	var sched *cron.Cron
	var tick <-chan time.Time

	if s.cfg.ScanDir != "" {
		// Seed an initial snapshot so status is useful immediately.
		s.scanOnce()

		if s.cfg.ScanCron != "" {
			sched = cron.New()
			if _, err := sched.AddFunc(s.cfg.ScanCron, s.scanOnce); err != nil {
				return fmt.Errorf("cron spec %q: %w", s.cfg.ScanCron, err)
			}
			sched.Start()
		} else {
			ticker := time.NewTicker(s.cfg.Interval)
			defer ticker.Stop()
			tick = ticker.C
		}
	}

	for {
		select {
		case <-ctx.Done():
			if sched != nil {
				<-sched.Stop().Done()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-tick:
			s.scanOnce()
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) scanOnce() {
	res, err := scan.Run(scan.Options{
		Root:    s.cfg.ScanDir,
		Include: s.cfg.Include,
		Exclude: s.cfg.Exclude,
	})
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastScanAt = time.Now()
		s.scanCount++
		s.mu.Unlock()
		s.log.Warn("scan failed", zap.String("dir", s.cfg.ScanDir), zap.Error(err))
		return
	}

	a := scan.Analyze(res, s.gpu, s.cfg.Region, s.cfg.BudgetLimit, s.cfg.CarbonLimit)
	now := time.Now()
	snap := snapshotFromAnalysis(a, now)

	var (
		ev        Event
		publish   bool
		alertGate bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastScan = &a
	s.lastScanAt = now
	s.scanCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
		alertGate = !snap.Passed
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			typ := "scan_delta"
			if delta.GateChanged {
				typ = "gate_change"
				alertGate = true
			}
			ev = Event{
				ID:        s.nextEventID,
				Type:      typ,
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	s.log.Info("scan complete",
		zap.Int("files", a.FilesAnalyzed),
		zap.Int("ml_files", a.MLFilesFound),
		zap.Float64("cost_usd", a.EstimatedCost),
		zap.Float64("carbon_kg", a.EstimatedCarbon),
		zap.Bool("passed", a.Passed))

	if publish {
		s.publishEvent(ev)
	}
	if alertGate {
		if err := s.notify.GateChange(a); err != nil {
			s.log.Warn("telegram alert failed", zap.Error(err))
		}
	}
}

func snapshotFromAnalysis(a scan.Analysis, at time.Time) Snapshot {
	return Snapshot{
		At:              at,
		FilesScanned:    a.FilesAnalyzed,
		MLFiles:         a.MLFilesFound,
		TrainingFiles:   a.TrainingLoops,
		Complexity:      a.TotalComplexity,
		EstimatedCost:   a.EstimatedCost,
		EstimatedCarbon: a.EstimatedCarbon,
		EstimatedHours:  a.EstimatedHours,
		Passed:          a.Passed,
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		FilesScanned:    curr.FilesScanned - prev.FilesScanned,
		MLFiles:         curr.MLFiles - prev.MLFiles,
		TrainingFiles:   curr.TrainingFiles - prev.TrainingFiles,
		EstimatedCost:   curr.EstimatedCost - prev.EstimatedCost,
		EstimatedCarbon: curr.EstimatedCarbon - prev.EstimatedCarbon,
		GateChanged:     curr.Passed != prev.Passed,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastScanAt:      s.lastScanAt,
		ScanCount:       s.scanCount,
		ScanDir:         s.cfg.ScanDir,
		ScanCron:        s.cfg.ScanCron,
		IntervalSec:     int(s.cfg.Interval.Seconds()),
		GPU:             s.gpu.Key,
		Region:          s.cfg.Region,
		BudgetLimit:     s.cfg.BudgetLimit,
		CarbonLimit:     s.cfg.CarbonLimit,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
