package services

import (
	"context"
	"fmt"
	json "github.com/goccy/go-json"
	"sitestatus/internal/models"
	"sitestatus/internal/providers"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
	"time"
)

type PhaseStatusServiceInterface interface {
	Post(ctx context.Context, site, message string) (*models.PhaseStatus, error)
	Recent(ctx context.Context, site string, maxAge time.Duration, maxItems int) ([]models.PhaseStatus, error)
	SweepExpired(ctx context.Context) (int, error)
}

// PhaseStatusService stores short human-readable progress messages per
// site, ordered by time and expired after a TTL.
type PhaseStatusService struct {
	table     storage.Table
	publisher StreamPublisherInterface
	ttl       time.Duration
	maxAge    time.Duration
	maxItems  int
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
	now       func() time.Time
}

func NewPhaseStatusService(conf *structures.Config, db storage.Database, publisher StreamPublisherInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) PhaseStatusServiceInterface {
	return newPhaseStatusService(conf, db, publisher, logger, metrics, time.Now)
}

func newPhaseStatusService(conf *structures.Config, db storage.Database, publisher StreamPublisherInterface, logger providers.Logger, metrics providers.MetricsProviderInterface, now func() time.Time) *PhaseStatusService {
	maxItems := conf.Phase.MaxItems
	if maxItems <= 0 {
		maxItems = 1
	}
	maxAge := conf.Phase.MaxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &PhaseStatusService{
		table:     db.Table(conf.Storage.Tables.Phase),
		publisher: publisher,
		ttl:       conf.Phase.TTL,
		maxAge:    maxAge,
		maxItems:  maxItems,
		logger:    logger,
		metrics:   metrics,
		now:       now,
	}
}

func (s *PhaseStatusService) Post(ctx context.Context, site, message string) (*models.PhaseStatus, error) {
	if site == "" {
		return nil, ErrEmptySite
	}

	now := s.now()
	phase := &models.PhaseStatus{
		Site:      site,
		Timestamp: now.UnixMilli(),
		Message:   message,
		TTL:       now.Add(s.ttl).Unix(),
	}
	data, err := json.Marshal(phase)
	if err != nil {
		return nil, fmt.Errorf("encode phase status %s: %w", site, err)
	}
	// nanosecond sort key keeps same-millisecond messages apart
	sk := fmt.Sprintf("%020d", now.UnixNano())
	if err := s.table.Put(ctx, storage.Item{PK: site, SK: sk, Data: data}); err != nil {
		s.metrics.IncStoreErrors("put")
		return nil, err
	}

	_ = s.publisher.Publish(ctx, models.TopicPhaseStatus, site, phase)
	return phase, nil
}

// Recent returns up to maxItems messages newer than maxAge, newest first.
// Zero arguments fall back to the configured defaults.
func (s *PhaseStatusService) Recent(ctx context.Context, site string, maxAge time.Duration, maxItems int) ([]models.PhaseStatus, error) {
	if site == "" {
		return nil, ErrEmptySite
	}
	if maxAge <= 0 {
		maxAge = s.maxAge
	}
	if maxItems <= 0 {
		maxItems = s.maxItems
	}

	items, err := s.table.Query(ctx, site)
	if err != nil {
		s.metrics.IncStoreErrors("query")
		return nil, err
	}

	now := s.now()
	cutoff := now.Add(-maxAge).UnixMilli()
	out := make([]models.PhaseStatus, 0, maxItems)
	for i := len(items) - 1; i >= 0 && len(out) < maxItems; i-- {
		var phase models.PhaseStatus
		if err := json.Unmarshal(items[i].Data, &phase); err != nil {
			s.logger.Warnf(providers.TypeGet, "Skipping unreadable phase status %s/%s: %s", items[i].PK, items[i].SK, err)
			continue
		}
		if phase.Timestamp < cutoff {
			break
		}
		if phase.TTL <= now.Unix() {
			continue
		}
		out = append(out, phase)
	}
	return out, nil
}

func (s *PhaseStatusService) SweepExpired(ctx context.Context) (int, error) {
	items, err := s.table.Scan(ctx)
	if err != nil {
		s.metrics.IncStoreErrors("scan")
		return 0, err
	}
	now := s.now().Unix()
	removed := 0
	for _, item := range items {
		var phase models.PhaseStatus
		if err := json.Unmarshal(item.Data, &phase); err == nil && phase.TTL > now {
			continue
		}
		if err := s.table.Delete(ctx, item.PK, item.SK); err != nil {
			s.metrics.IncStoreErrors("delete")
			s.logger.Errorf(providers.TypeApp, "Sweep of phase status %s/%s failed: %s", item.PK, item.SK, err)
			continue
		}
		removed++
	}
	return removed, nil
}
