// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	conf "github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/config"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/db"
	"github.com/Santiago-Beltran/ecommerce-full-ETL-process/internal/pipeline"
)

// Job - jeden run dla wskazanej daty źródłowej.
type Job func(ctx context.Context, sourceDate db.Date) error

// Scheduler odpala Job raz dziennie o schedule.at dla dnia dziś - lag_days.
type Scheduler struct {
	log     zerolog.Logger      // logowanie
	mu      sync.Mutex          // ochrona sekcji krytycznych
	cfg     conf.ScheduleConfig // aktualny harmonogram
	job     Job
	cron    *gocron.Scheduler
	loc     *time.Location
	running bool // czy harmonogram działa
	cancel  context.CancelFunc
	now     func() time.Time
}

func New(log zerolog.Logger, cfg conf.ScheduleConfig, job Job) *Scheduler {
	return &Scheduler{log: log, cfg: cfg, job: job, now: time.Now}
}

// SourceDate - dzień źródłowy dla chwili now (w strefie now).
func SourceDate(now time.Time, lagDays int) db.Date {
	return db.DateOf(now).AddDays(-lagDays)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	loc, err := s.cfg.Location()
	if err != nil {
		return fmt.Errorf("schedule timezone: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	cron := gocron.NewScheduler(loc)
	// następny run nie startuje, dopóki poprzedni trwa
	cron.SingletonModeAll()
	if _, err := cron.Every(1).Day().At(s.cfg.At).Do(s.tick, ctx); err != nil {
		cancel()
		return fmt.Errorf("schedule at %q: %w", s.cfg.At, err)
	}
	cron.StartAsync()

	s.cron, s.loc, s.cancel, s.running = cron, loc, cancel, true
	_, next := cron.NextRun()
	s.log.Info().Str("at", s.cfg.At).Str("tz", loc.String()).Int("lag_days", s.cfg.LagDays).Time("next_run", next).Msg("scheduler: start")
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cron, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	cancel()
	cron.Stop()
	s.log.Info().Msg("scheduler: stop")
}

// UpdateConfig podmienia harmonogram; działający scheduler jest restartowany.
func (s *Scheduler) UpdateConfig(ctx context.Context, cfg conf.ScheduleConfig) error {
	s.mu.Lock()
	s.cfg = cfg
	isRunning := s.running
	s.mu.Unlock()

	if !isRunning {
		return nil
	}
	s.log.Info().Msg("scheduler: restart po zmianie configu")
	s.Stop()
	return s.Start(ctx)
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun - czas najbliższego uruchomienia (zero, gdy stoi).
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return time.Time{}
	}
	_, t := s.cron.NextRun()
	return t
}

// RunNow wykonuje job od razu, poza harmonogramem (np. nadrobienie po starcie).
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.runFor(ctx, s.sourceDate())
}

func (s *Scheduler) sourceDate() db.Date {
	s.mu.Lock()
	loc, lag := s.loc, s.cfg.LagDays
	s.mu.Unlock()
	if loc == nil {
		loc, _ = s.cfg.Location()
	}
	if loc == nil {
		loc = time.Local
	}
	return SourceDate(s.now().In(loc), lag)
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.runFor(ctx, s.sourceDate()); err != nil {
		s.log.Error().Err(err).Msg("scheduled run failed")
	}
}

func (s *Scheduler) runFor(ctx context.Context, day db.Date) error {
	log := s.log.With().Str("source_date", day.String()).Logger()
	log.Info().Msg("scheduled run")
	err := s.job(ctx, day)
	if errors.Is(err, pipeline.ErrSourceDateProcessed) {
		// już zrobione (np. ręcznym runem), to nie błąd harmonogramu
		log.Info().Msg("source date already processed, skipping")
		return nil
	}
	return err
}
