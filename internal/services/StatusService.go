package services

import (
	"context"
	"errors"
	"fmt"
	json "github.com/goccy/go-json"
	"sitestatus/internal/models"
	"sitestatus/internal/providers"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
	"time"
)

var (
	ErrEmptySite       = errors.New("site must not be empty")
	ErrEmptyStatusType = errors.New("statusType must not be empty")
	ErrMissingKey      = errors.New("missing required key")
)

type StatusServiceInterface interface {
	Post(ctx context.Context, site, statusType string, status *models.Map) (*models.WriteResult, error)
	PostForecast(ctx context.Context, site string, status *models.Map) (*models.WriteResult, error)
	Get(ctx context.Context, site, statusType string) (*models.Map, error)
	GetEntry(ctx context.Context, site, statusType string) (*models.StatusEntry, bool, error)
	GetCombined(ctx context.Context, site string) (*models.CombinedStatus, error)
	ClearSite(ctx context.Context, site string) ([]models.DeleteResult, error)
	GetAllOpenStatus(ctx context.Context) (map[string]models.OpenStatusView, error)
	Entries(ctx context.Context) ([]models.StatusEntry, error)
}

// StatusService owns the status table: one row per (site, statusType)
// holding the merged, timestamped status document.
type StatusService struct {
	table     storage.Table
	publisher StreamPublisherInterface
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface
	retention time.Duration
	now       func() time.Time
}

func NewStatusService(conf *structures.Config, db storage.Database, publisher StreamPublisherInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) StatusServiceInterface {
	return newStatusService(conf, db, publisher, logger, metrics, time.Now)
}

func newStatusService(conf *structures.Config, db storage.Database, publisher StreamPublisherInterface, logger providers.Logger, metrics providers.MetricsProviderInterface, now func() time.Time) *StatusService {
	return &StatusService{
		table:     db.Table(conf.Storage.Tables.Status),
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		retention: conf.Forecast.Retention,
		now:       now,
	}
}

func (s *StatusService) Post(ctx context.Context, site, statusType string, status *models.Map) (*models.WriteResult, error) {
	if site == "" {
		return nil, ErrEmptySite
	}
	if statusType == "" {
		return nil, ErrEmptyStatusType
	}
	if statusType == models.StatusTypeForecast {
		return s.PostForecast(ctx, site, status)
	}

	existing, found, err := s.GetEntry(ctx, site, statusType)
	if err != nil {
		return nil, err
	}
	base := models.NewMap()
	if found {
		base = existing.Status
	}

	ts := s.now().UnixMilli()
	merged := models.MergeMaps(base, models.AddTimestamps(status, ts))
	entry := &models.StatusEntry{
		Site:              site,
		StatusType:        statusType,
		Status:            models.SanitizeMap(merged),
		ServerTimestampMs: ts,
	}
	return s.save(ctx, entry)
}

func (s *StatusService) PostForecast(ctx context.Context, site string, status *models.Map) (*models.WriteResult, error) {
	if site == "" {
		return nil, ErrEmptySite
	}

	existing, found, err := s.GetEntry(ctx, site, models.StatusTypeForecast)
	if err != nil {
		return nil, err
	}
	var previous []models.Value
	if found {
		previous = forecastReports(existing.Status)
	}

	now := s.now()
	reports := MergeForecast(previous, forecastReports(status), now, s.retention)
	entry := &models.StatusEntry{
		Site:              site,
		StatusType:        models.StatusTypeForecast,
		Status:            models.MapOf(models.StatusTypeForecast, models.List(reports...)),
		ServerTimestampMs: now.UnixMilli(),
	}
	return s.save(ctx, entry)
}

func (s *StatusService) save(ctx context.Context, entry *models.StatusEntry) (*models.WriteResult, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode status %s/%s: %w", entry.Site, entry.StatusType, err)
	}
	err = s.table.Put(ctx, storage.Item{PK: entry.Site, SK: entry.StatusType, Data: data})
	if err != nil {
		s.metrics.IncStoreErrors("put")
		return nil, err
	}
	s.metrics.IncStatusWrites(entry.StatusType)

	_ = s.publisher.Publish(ctx, models.TopicSiteStatus, entry.Site, entry)

	return &models.WriteResult{
		Site:              entry.Site,
		StatusType:        entry.StatusType,
		ServerTimestampMs: entry.ServerTimestampMs,
	}, nil
}

// Get returns the stored status, or an empty map when no row exists.
func (s *StatusService) Get(ctx context.Context, site, statusType string) (*models.Map, error) {
	entry, found, err := s.GetEntry(ctx, site, statusType)
	if err != nil {
		return nil, err
	}
	if !found {
		return models.NewMap(), nil
	}
	return entry.Status, nil
}

func (s *StatusService) GetEntry(ctx context.Context, site, statusType string) (*models.StatusEntry, bool, error) {
	item, found, err := s.table.Get(ctx, site, statusType)
	if err != nil {
		s.metrics.IncStoreErrors("get")
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	entry, err := decodeEntry(item)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// GetCombined unions the top-level keys of every statusType stored for the
// site. Later rows in sort order overwrite earlier ones on key collision.
func (s *StatusService) GetCombined(ctx context.Context, site string) (*models.CombinedStatus, error) {
	if site == "" {
		return nil, ErrEmptySite
	}
	items, err := s.table.Query(ctx, site)
	if err != nil {
		s.metrics.IncStoreErrors("query")
		return nil, err
	}

	combined := &models.CombinedStatus{
		Site:               site,
		Status:             models.NewMap(),
		StatusTimestampsMs: make(map[string]int64, len(items)),
	}
	for _, item := range items {
		entry, err := decodeEntry(item)
		if err != nil {
			s.logger.Warnf(providers.TypeGet, "Skipping unreadable row %s/%s: %s", item.PK, item.SK, err)
			continue
		}
		entry.Status.Range(func(key string, v models.Value) bool {
			combined.Status.Set(key, v)
			return true
		})
		combined.StatusTimestampsMs[entry.StatusType] = entry.ServerTimestampMs
		if entry.ServerTimestampMs > combined.LatestStatusTimestampMs {
			combined.LatestStatusTimestampMs = entry.ServerTimestampMs
		}
	}
	return combined, nil
}

// ClearSite deletes every row of the site. A failed delete is reported in
// its own result and does not stop the remaining deletes.
func (s *StatusService) ClearSite(ctx context.Context, site string) ([]models.DeleteResult, error) {
	if site == "" {
		return nil, ErrEmptySite
	}
	items, err := s.table.Query(ctx, site)
	if err != nil {
		s.metrics.IncStoreErrors("query")
		return nil, err
	}

	results := make([]models.DeleteResult, 0, len(items))
	for _, item := range items {
		res := models.DeleteResult{Site: site, StatusType: item.SK, Removed: true}
		if err := s.table.Delete(ctx, item.PK, item.SK); err != nil {
			s.metrics.IncStoreErrors("delete")
			s.logger.Errorf(providers.TypeApp, "Delete %s/%s failed: %s", item.PK, item.SK, err)
			res.Removed = false
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *StatusService) GetAllOpenStatus(ctx context.Context) (map[string]models.OpenStatusView, error) {
	entries, err := s.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return AggregateOpenStatus(entries, s.now()), nil
}

// Entries returns every stored status row.
func (s *StatusService) Entries(ctx context.Context) ([]models.StatusEntry, error) {
	items, err := s.table.Scan(ctx)
	if err != nil {
		s.metrics.IncStoreErrors("scan")
		return nil, err
	}
	entries := make([]models.StatusEntry, 0, len(items))
	for _, item := range items {
		entry, err := decodeEntry(item)
		if err != nil {
			s.logger.Warnf(providers.TypeApp, "Skipping unreadable row %s/%s: %s", item.PK, item.SK, err)
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func decodeEntry(item storage.Item) (*models.StatusEntry, error) {
	var entry models.StatusEntry
	if err := json.Unmarshal(item.Data, &entry); err != nil {
		return nil, fmt.Errorf("decode status %s/%s: %w", item.PK, item.SK, err)
	}
	if entry.Status == nil {
		entry.Status = models.NewMap()
	}
	entry.Site = item.PK
	entry.StatusType = item.SK
	return &entry, nil
}
