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

var ErrEmptyConnection = errors.New("connection id must not be empty")

type SubscriberServiceInterface interface {
	Subscribe(ctx context.Context, connectionID, site string) error
	Unsubscribe(ctx context.Context, connectionID string) error
	ListConnections(ctx context.Context, site string) ([]string, error)
	SweepExpired(ctx context.Context) (int, error)
	All(ctx context.Context) ([]models.Subscriber, error)
}

// SubscriberService keeps one row per connection in the subscribers table.
// Subscribing again replaces the site and refreshes the expiration.
type SubscriberService struct {
	table   storage.Table
	ttl     time.Duration
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	now     func() time.Time
}

func NewSubscriberService(conf *structures.Config, db storage.Database, logger providers.Logger, metrics providers.MetricsProviderInterface) SubscriberServiceInterface {
	return newSubscriberService(conf, db, logger, metrics, time.Now)
}

func newSubscriberService(conf *structures.Config, db storage.Database, logger providers.Logger, metrics providers.MetricsProviderInterface, now func() time.Time) *SubscriberService {
	return &SubscriberService{
		table:   db.Table(conf.Storage.Tables.Subscribers),
		ttl:     conf.Subscribers.TTL,
		logger:  logger,
		metrics: metrics,
		now:     now,
	}
}

func (s *SubscriberService) Subscribe(ctx context.Context, connectionID, site string) error {
	if connectionID == "" {
		return ErrEmptyConnection
	}
	if site == "" {
		return ErrEmptySite
	}

	now := s.now()
	sub := models.Subscriber{
		ConnectionID: connectionID,
		Site:         site,
		Timestamp:    now.Unix(),
		Expiration:   now.Add(s.ttl).Unix(),
		TimestampISO: now.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscriber %s: %w", connectionID, err)
	}
	if err := s.table.Put(ctx, storage.Item{PK: connectionID, Data: data}); err != nil {
		s.metrics.IncStoreErrors("put")
		return err
	}
	s.logger.Debugf(providers.TypeWs, "Subscribed %s to %s", connectionID, site)
	return nil
}

// Unsubscribe removes the connection; unknown IDs are not an error.
func (s *SubscriberService) Unsubscribe(ctx context.Context, connectionID string) error {
	if connectionID == "" {
		return ErrEmptyConnection
	}
	if err := s.table.Delete(ctx, connectionID, ""); err != nil {
		s.metrics.IncStoreErrors("delete")
		return err
	}
	s.logger.Debugf(providers.TypeWs, "Unsubscribed %s", connectionID)
	return nil
}

// ListConnections scans the whole table and filters by site.
func (s *SubscriberService) ListConnections(ctx context.Context, site string) ([]string, error) {
	subs, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for _, sub := range subs {
		if sub.Site == site {
			ids = append(ids, sub.ConnectionID)
		}
	}
	return ids, nil
}

// SweepExpired deletes rows whose expiration has passed and returns how many
// were removed.
func (s *SubscriberService) SweepExpired(ctx context.Context) (int, error) {
	subs, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now().Unix()
	removed := 0
	for _, sub := range subs {
		if sub.Expiration > now {
			continue
		}
		if err := s.table.Delete(ctx, sub.ConnectionID, ""); err != nil {
			s.metrics.IncStoreErrors("delete")
			s.logger.Errorf(providers.TypeApp, "Sweep of subscriber %s failed: %s", sub.ConnectionID, err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *SubscriberService) All(ctx context.Context) ([]models.Subscriber, error) {
	items, err := s.table.Scan(ctx)
	if err != nil {
		s.metrics.IncStoreErrors("scan")
		return nil, err
	}
	subs := make([]models.Subscriber, 0, len(items))
	for _, item := range items {
		var sub models.Subscriber
		if err := json.Unmarshal(item.Data, &sub); err != nil {
			s.logger.Warnf(providers.TypeApp, "Skipping unreadable subscriber %s: %s", item.PK, err)
			continue
		}
		sub.ConnectionID = item.PK
		subs = append(subs, sub)
	}
	return subs, nil
}
