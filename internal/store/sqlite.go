package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/terraincognita07/shrine/internal/logger"
)

const DefaultSQLitePollInterval = 2 * time.Second

type collectionRow struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (collectionRow) TableName() string {
	return "collections"
}

// SQLiteStore persists each collection as one JSON row. Writes from this
// handle are published immediately. Writes from other handles on the same
// file are picked up by polling each row's updated_at once somebody subscribes.
type SQLiteStore struct {
	database     *gorm.DB
	hub          *changeHub
	pollInterval time.Duration

	mu       sync.Mutex
	closed   bool
	known    map[string]time.Time
	pollStop chan struct{}
	pollDone chan struct{}
}

func OpenSQLite(dbPath string) (*gorm.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", dbPath)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormlogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyEmbeddedMigrations(database, nil); err != nil {
		return nil, fmt.Errorf("apply embedded migrations: %w", err)
	}
	return database, nil
}

func NewSQLiteStore(database *gorm.DB) *SQLiteStore {
	return &SQLiteStore{
		database:     database,
		hub:          newChangeHub(),
		pollInterval: DefaultSQLitePollInterval,
		known:        make(map[string]time.Time),
	}
}

// WithPollInterval sets how often other writers are checked for. It must be
// called before the first Subscribe.
func (s *SQLiteStore) WithPollInterval(interval time.Duration) *SQLiteStore {
	if interval > 0 {
		s.pollInterval = interval
	}
	return s
}

// OpenSQLiteStore opens dbPath, applies migrations and wraps the connection.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	database, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(database), nil
}

func (s *SQLiteStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := validateCollection(name); err != nil {
		return nil, err
	}

	var row collectionRow
	err := s.database.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load collection %s: %w", name, err)
	}
	return []byte(row.Value), nil
}

func (s *SQLiteStore) Set(ctx context.Context, name string, value []byte) error {
	if err := validateCollection(name); err != nil {
		return err
	}

	// The stamp is recorded under the same lock as the write so the poller
	// never mistakes this write for a foreign one.
	s.mu.Lock()
	row := collectionRow{Name: name, Value: string(value), UpdatedAt: rowTimestamp(time.Now())}
	err := s.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err == nil {
		s.known[name] = row.UpdatedAt
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("save collection %s: %w", name, err)
	}

	s.hub.publish(name, value)
	return nil
}

// rowTimestamp drops precision the driver may not round-trip, so a handle
// recognises its own writes when polling.
func rowTimestamp(now time.Time) time.Time {
	return now.UTC().Truncate(time.Microsecond)
}

func (s *SQLiteStore) Subscribe(ctx context.Context, name string, fn func(value []byte)) error {
	if err := validateCollection(name); err != nil {
		return err
	}
	if err := s.startPolling(ctx); err != nil {
		return err
	}
	return s.hub.subscribe(ctx, name, func() ([]byte, error) {
		return s.Get(ctx, name)
	}, fn)
}

// startPolling records the current row stamps and launches the poller once.
func (s *SQLiteStore) startPolling(ctx context.Context) error {
	s.mu.Lock()
	running, closed := s.pollStop != nil, s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if running {
		return nil
	}

	stamps, err := s.rowStamps(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.pollStop != nil {
		return nil
	}
	for name, stamp := range stamps {
		if _, seen := s.known[name]; !seen {
			s.known[name] = stamp
		}
	}
	s.pollStop = make(chan struct{})
	s.pollDone = make(chan struct{})
	go s.poll(s.pollStop, s.pollDone)
	return nil
}

func (s *SQLiteStore) poll(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.publishForeignChanges(context.Background()); err != nil {
				logger.Warningf("sqlite: poll collections: %v", err)
			}
		}
	}
}

// publishForeignChanges republishes every collection whose updated_at moved
// since this handle last saw it.
func (s *SQLiteStore) publishForeignChanges(ctx context.Context) error {
	stamps, err := s.rowStamps(ctx)
	if err != nil {
		return err
	}

	for name, stamp := range stamps {
		s.mu.Lock()
		changed := !s.known[name].Equal(stamp)
		if changed {
			s.known[name] = stamp
		}
		s.mu.Unlock()
		if !changed {
			continue
		}

		value, err := s.Get(ctx, name)
		if err != nil {
			return err
		}
		s.hub.publish(name, value)
	}
	return nil
}

func (s *SQLiteStore) rowStamps(ctx context.Context) (map[string]time.Time, error) {
	var rows []collectionRow
	if err := s.database.WithContext(ctx).Select("name", "updated_at").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read collection stamps: %w", err)
	}
	stamps := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		if validateCollection(row.Name) != nil {
			continue
		}
		stamps[row.Name] = rowTimestamp(row.UpdatedAt)
	}
	return stamps, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	stop, done := s.pollStop, s.pollDone
	s.closed = true
	s.pollStop = nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}

	s.hub.close()
	sqlDB, err := s.database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
