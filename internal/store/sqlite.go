package store

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"grower/internal/roster"
)

// setting is one key/value row of local storage.
type setting struct {
	Name      string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (setting) TableName() string { return "settings" }

// SQLite is the device-local store, a key/value table in a sqlite file.
type SQLite struct {
	db *gorm.DB
}

var _ Store = (*SQLite)(nil)

// NewSQLite opens (creating if needed) the sqlite database at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "creating db dir")
		}
	}
	db, err := gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite")
	}
	if err := db.AutoMigrate(&setting{}); err != nil {
		return nil, errors.Wrap(err, "migrating sqlite")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) get(ctx context.Context, name string) (string, bool, error) {
	var row setting
	err := s.db.WithContext(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "reading %s", name)
	}
	return row.Value, true, nil
}

func (s *SQLite) set(ctx context.Context, name, value string) error {
	row := setting{Name: name, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	return errors.Wrapf(err, "writing %s", name)
}

func (s *SQLite) LoadRoster(ctx context.Context) ([]roster.Student, error) {
	raw, ok, err := s.get(ctx, RosterKey)
	if err != nil || !ok {
		return nil, err
	}
	return decodeRoster(raw)
}

func (s *SQLite) SaveRoster(ctx context.Context, list []roster.Student) error {
	raw, err := encodeRoster(list)
	if err != nil {
		return err
	}
	return s.set(ctx, RosterKey, raw)
}

func (s *SQLite) LoadExpiry(ctx context.Context) (string, error) {
	v, _, err := s.get(ctx, ExpiryKey)
	return v, err
}

func (s *SQLite) SaveExpiry(ctx context.Context, date string) error {
	return s.set(ctx, ExpiryKey, date)
}

// Healthy pings the underlying database.
func (s *SQLite) Healthy(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
