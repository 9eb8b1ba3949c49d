package housekeeping

import (
	"context"
	"fmt"
	json "github.com/goccy/go-json"
	"os"
	"sitestatus/internal/housekeeping/interfaces"
	"sitestatus/internal/providers"
	"sitestatus/internal/storage"
	"sitestatus/internal/structures"
	"time"
)

const snapshotVersion = 1

// Snapshot is the on-disk export of every table, JSON encoded then zstd
// compressed.
type Snapshot struct {
	Version   int                      `json:"version"`
	CreatedAt time.Time                `json:"created_at"`
	Tables    map[string][]SnapshotRow `json:"tables"`
}

type SnapshotRow struct {
	PK   string          `json:"pk"`
	SK   string          `json:"sk"`
	Data json.RawMessage `json:"data"`
}

type SnapshotManager struct {
	db         storage.Database
	tables     []string
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewSnapshotManager(conf *structures.Config, db storage.Database, compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *SnapshotManager {
	return &SnapshotManager{
		db: db,
		tables: []string{
			conf.Storage.Tables.Status,
			conf.Storage.Tables.Subscribers,
			conf.Storage.Tables.Phase,
		},
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}
}

func (f *SnapshotManager) Build(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Version:   snapshotVersion,
		CreatedAt: time.Now().UTC(),
		Tables:    make(map[string][]SnapshotRow, len(f.tables)),
	}
	for _, name := range f.tables {
		items, err := f.db.Table(name).Scan(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]SnapshotRow, len(items))
		for i, item := range items {
			rows[i] = SnapshotRow{PK: item.PK, SK: item.SK, Data: item.Data}
		}
		snap.Tables[name] = rows
	}
	return snap, nil
}

// Apply writes every row of the snapshot. Tables not configured on this
// instance are skipped.
func (f *SnapshotManager) Apply(ctx context.Context, snap *Snapshot) (int, error) {
	known := make(map[string]bool, len(f.tables))
	for _, name := range f.tables {
		known[name] = true
	}

	written := 0
	for name, rows := range snap.Tables {
		if !known[name] {
			f.logger.Warnf(providers.TypeApp, "Snapshot table %s is not configured, skipping %d rows", name, len(rows))
			continue
		}
		table := f.db.Table(name)
		for _, row := range rows {
			err := table.Put(ctx, storage.Item{PK: row.PK, SK: row.SK, Data: row.Data})
			if err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

func (f *SnapshotManager) SaveToFile(ctx context.Context, fileName string) error {
	start := time.Now()
	defer func() {
		f.metrics.ObserveSnapshotDuration(time.Since(start))
	}()

	snap, err := f.Build(ctx)
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// LoadFromFile restores a snapshot. A missing file is not an error.
func (f *SnapshotManager) LoadFromFile(ctx context.Context, fileName string) (int, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return 0, fmt.Errorf("decompress snapshot %s: %w", fileName, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(decompressedData, &snap); err != nil {
		return 0, fmt.Errorf("decode snapshot %s: %w", fileName, err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("snapshot %s has unsupported version %d", fileName, snap.Version)
	}
	return f.Apply(ctx, &snap)
}
