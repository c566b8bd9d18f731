// Package store persists all game state in a single composite-key table,
// the same single-table layout the game has always used: a partition key
// ("user#<id>", "costs", "scenario"), a sort key ("game#<id>",
// "sandbox#<id>", "metadata", a scenario id) and a JSON document payload.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"cloudbudget/internal/errors"
)

// Record is one row of the table.
type Record struct {
	PK        string    `gorm:"primaryKey;column:pk;size:191"`
	SK        string    `gorm:"primaryKey;column:sk;size:191"`
	Doc       string    `gorm:"column:doc;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName keeps the historical table name.
func (Record) TableName() string { return "game" }

// Item is a decoded row.
type Item struct {
	PK  string
	SK  string
	Doc map[string]any
}

// Store wraps the database handle.
type Store struct {
	db *gorm.DB
}

// Open connects to the database named by dsn and migrates the table.
// The dialect is detected from the DSN: anything postgres-shaped goes to the
// postgres driver, everything else is treated as a SQLite path.
func Open(dsn string) (*Store, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, errors.New(errors.TypeConfig, "database dsn is empty")
	}

	cfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgresDSN(trimmed) {
		db, err = gorm.Open(postgres.Open(trimmed), cfg)
	} else {
		db, err = gorm.Open(sqlite.Open(trimmed), cfg)
	}
	if err != nil {
		return nil, errors.Storage("open database", err)
	}

	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, errors.Storage("migrate game table", err)
	}

	return &Store{db: db}, nil
}

func isPostgresDSN(dsn string) bool {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return true
	}
	// key=value DSNs ("host=... user=...") are postgres as well.
	return strings.Contains(dsn, "host=") || strings.Contains(dsn, "dbname=")
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get loads one document by its composite key.
func (s *Store) Get(ctx context.Context, pk, sk string) (map[string]any, error) {
	var rec Record
	err := s.db.WithContext(ctx).Where("pk = ? AND sk = ?", pk, sk).First(&rec).Error
	if err != nil {
		if errorsIsNotFound(err) {
			return nil, errors.NotFound("record", pk+"/"+sk)
		}
		return nil, errors.Storage("get record", err)
	}
	doc, err := decodeDoc(rec.Doc)
	if err != nil {
		return nil, errors.Storage("decode record", err)
	}
	return doc, nil
}

// Put writes a document, replacing any existing row with the same key.
func (s *Store) Put(ctx context.Context, pk, sk string, doc map[string]any) error {
	payload, err := encodeDoc(doc)
	if err != nil {
		return errors.Storage("encode record", err)
	}
	rec := Record{PK: pk, SK: sk, Doc: payload}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return errors.Storage("put record", err)
	}
	return nil
}

// Update applies a partial patch to an existing document inside a
// transaction. Missing rows surface as not-found.
func (s *Store) Update(ctx context.Context, pk, sk string, patch map[string]any) error {
	return s.UpdateIf(ctx, pk, sk, patch, nil)
}

// UpdateIf is Update with an optional guard evaluated against the current
// document before the patch is applied. A false guard rejects the write with
// a state error, which is how concurrent report steps against the same game
// are serialized: the guard pins the expected month, so a stale
// read-modify-write loses.
func (s *Store) UpdateIf(ctx context.Context, pk, sk string, patch map[string]any, guard func(map[string]any) bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec Record
		err := tx.Where("pk = ? AND sk = ?", pk, sk).First(&rec).Error
		if err != nil {
			if errorsIsNotFound(err) {
				return errors.NotFound("record", pk+"/"+sk)
			}
			return errors.Storage("load record for update", err)
		}

		doc, err := decodeDoc(rec.Doc)
		if err != nil {
			return errors.Storage("decode record", err)
		}
		if guard != nil && !guard(doc) {
			return errors.State("conditional update rejected, record changed underneath")
		}

		for k, v := range patch {
			doc[k] = v
		}
		doc["updated_at"] = time.Now().UTC().Format(time.RFC3339)

		payload, err := encodeDoc(doc)
		if err != nil {
			return errors.Storage("encode record", err)
		}
		return tx.Model(&Record{}).
			Where("pk = ? AND sk = ?", pk, sk).
			Update("doc", payload).Error
	})
}

// QueryPrefix lists documents under one partition key whose sort key starts
// with prefix, oldest first.
func (s *Store) QueryPrefix(ctx context.Context, pk, skPrefix string) ([]Item, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("pk = ? AND sk LIKE ?", pk, likePrefix(skPrefix)).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, errors.Storage("query records", err)
	}
	return decodeItems(recs)
}

// ScanSKPrefix lists documents across all partitions whose sort key starts
// with prefix. Used by the public share listing.
func (s *Store) ScanSKPrefix(ctx context.Context, skPrefix string) ([]Item, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("sk LIKE ?", likePrefix(skPrefix)).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, errors.Storage("scan records", err)
	}
	return decodeItems(recs)
}

func decodeItems(recs []Record) ([]Item, error) {
	items := make([]Item, 0, len(recs))
	for _, rec := range recs {
		doc, err := decodeDoc(rec.Doc)
		if err != nil {
			return nil, errors.Storage("decode record", err)
		}
		items = append(items, Item{PK: rec.PK, SK: rec.SK, Doc: doc})
	}
	return items, nil
}

func likePrefix(prefix string) string {
	return prefix + "%"
}

func errorsIsNotFound(err error) bool {
	return err == gorm.ErrRecordNotFound || strings.Contains(err.Error(), "record not found")
}

// decodeDoc parses a stored JSON document. Numbers decode as json.Number so
// monetary fields keep their exact decimal representation.
func decodeDoc(payload string) (map[string]any, error) {
	if strings.TrimSpace(payload) == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func encodeDoc(doc map[string]any) (string, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}
