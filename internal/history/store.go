package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/model"
)

const defaultDBName = "history.db"

// BreakRecord is one taken (or skipped) break.
type BreakRecord struct {
	ID         uint            `gorm:"primaryKey"`
	StartedAt  time.Time       `gorm:"not null;index"`
	EndedAt    time.Time       `gorm:"not null"`
	Kind       model.BreakKind `gorm:"not null;index"`
	Planned    int64           `gorm:"not null"` // seconds
	Actual     int64           `gorm:"not null"` // seconds
	Completed  bool            `gorm:"not null;default:true"`
	Suggestion string
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Summary aggregates break history over a period.
type Summary struct {
	Breaks       int
	Completed    int
	Skipped      int
	TotalSeconds int64
}

// Store persists break records in a local SQLite database.
type Store struct {
	db *gorm.DB
}

// DefaultDBPath returns the history database location under the user config
// directory, creating parent directories as needed.
func DefaultDBPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	dir := filepath.Join(configDir, appName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create history directory: %w", err)
	}
	return filepath.Join(dir, defaultDBName), nil
}

// Open connects to the history database and migrates the schema.
func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open history database")
	}
	if err := db.AutoMigrate(&BreakRecord{}); err != nil {
		return nil, errors.Wrap(err, "migrate history schema")
	}
	return &Store{db: db}, nil
}

// Record inserts a break record.
func (store *Store) Record(record *BreakRecord) error {
	if result := store.db.Create(record); result.Error != nil {
		return errors.Wrap(result.Error, "insert break record")
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (store *Store) Recent(limit int) ([]BreakRecord, error) {
	var records []BreakRecord
	result := store.db.Order("started_at DESC").Limit(limit).Find(&records)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "query break records")
	}
	return records, nil
}

// SummarySince aggregates breaks taken since the given time.
func (store *Store) SummarySince(since time.Time) (Summary, error) {
	var records []BreakRecord
	result := store.db.Where("started_at >= ?", since).Find(&records)
	if result.Error != nil {
		return Summary{}, errors.Wrap(result.Error, "query break summary")
	}

	summary := Summary{Breaks: len(records)}
	for _, record := range records {
		if record.Completed {
			summary.Completed++
		} else {
			summary.Skipped++
		}
		summary.TotalSeconds += record.Actual
	}
	return summary, nil
}

// Close releases the underlying database connection.
func (store *Store) Close() error {
	db, err := store.db.DB()
	if err != nil {
		return errors.Wrap(err, "unwrap history database")
	}
	return db.Close()
}
