package housekeeping

import (
	"context"
	"github.com/roylee0704/gron"
	"sitestatus/internal/housekeeping/interfaces"
	"sitestatus/internal/providers"
	"sitestatus/internal/services"
	"sitestatus/internal/structures"
	"sync"
	"time"
)

const (
	jobTimeout            = 30 * time.Second
	defaultSweepInterval  = 10 * time.Minute
	defaultSnapshotPeriod = 5 * time.Minute
)

// Scheduler runs the periodic maintenance jobs: expiry sweeps of the
// subscriber and phase tables and, when enabled, snapshot saves.
type Scheduler struct {
	config      *structures.Config
	logger      providers.Logger
	subscribers services.SubscriberServiceInterface
	phases      services.PhaseStatusServiceInterface
	snapshots   *SnapshotManager
	cron        *gron.Cron
	opsMu       sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	sweepInterval := s.config.Subscribers.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	s.cron.AddFunc(gron.Every(sweepInterval), s.Sweep)

	if s.config.Snapshot.Enabled {
		interval := s.config.Snapshot.SaveInterval
		if interval <= 0 {
			interval = defaultSnapshotPeriod
		}
		s.cron.AddFunc(gron.Every(interval), func() {
			if err := s.Persist(); err == nil {
				s.logger.Infof(providers.TypeApp, "Persisted snapshot to file %s", s.config.Snapshot.FilePath)
			}
		})
	}

	s.cron.Start()
}

// Sweep removes expired subscriber and phase status rows.
func (s *Scheduler) Sweep() {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	subs, err := s.subscribers.SweepExpired(ctx)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Subscriber sweep failed: %s", err)
	}
	phases, err := s.phases.SweepExpired(ctx)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Phase status sweep failed: %s", err)
	}
	if subs > 0 || phases > 0 {
		s.logger.Infof(providers.TypeApp, "Swept %d expired subscribers and %d phase statuses", subs, phases)
	}
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *Scheduler) Restore() error {
	if !s.config.Snapshot.Enabled || !s.config.Snapshot.RestoreOnStart {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	rows, err := s.snapshots.LoadFromFile(ctx, s.config.Snapshot.FilePath)
	if err != nil {
		return err
	}
	s.logger.Infof(providers.TypeApp, "Restored %d rows from %s", rows, s.config.Snapshot.FilePath)
	return nil
}

func (s *Scheduler) Persist() error {
	if !s.config.Snapshot.Enabled {
		return nil
	}
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.snapshots.SaveToFile(ctx, s.config.Snapshot.FilePath); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting snapshot: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, subscribers services.SubscriberServiceInterface, phases services.PhaseStatusServiceInterface, snapshots *SnapshotManager) interfaces.SchedulerInterface {
	return &Scheduler{
		config:      config,
		logger:      logger,
		subscribers: subscribers,
		phases:      phases,
		snapshots:   snapshots,
	}
}
