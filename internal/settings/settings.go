// Package settings persists the key/value runtime settings in their own
// sqlite file. Values are opaque strings; callers coerce them.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"document-embed/internal/db"
	"document-embed/internal/models"
)

// Setting is one row of the settings table.
type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:s"`
	Key           string `bun:"key,pk"`
	Value         string `bun:"value"`
}

// Store is loaded once at Open and keeps an in-memory copy that Set keeps
// in sync with the database.
type Store struct {
	db     *bun.DB
	log    zerolog.Logger
	values map[string]string
}

// Open opens the settings database at path, seeds missing defaults and
// loads every row.
func Open(ctx context.Context, path string, debug bool, logger zerolog.Logger) (*Store, error) {
	bdb, err := db.OpenSQLite(ctx, path, debug)
	if err != nil {
		return nil, fmt.Errorf("initializing settings: %w", err)
	}
	s, err := New(ctx, bdb, logger)
	if err != nil {
		bdb.Close()
		return nil, err
	}
	return s, nil
}

// New initialises the settings table on an open database.
func New(ctx context.Context, bdb *bun.DB, logger zerolog.Logger) (*Store, error) {
	s := &Store{db: bdb, log: logger}
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Setting)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: creating settings table: %v", models.ErrPersistence, err)
	}

	rows := make([]Setting, 0, len(defaults))
	for _, e := range defaults {
		rows = append(rows, Setting{Key: e.key, Value: e.value})
	}
	// existing keys win
	if _, err := s.db.NewInsert().Model(&rows).Ignore().Exec(ctx); err != nil {
		return fmt.Errorf("%w: seeding settings: %v", models.ErrPersistence, err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	var rows []Setting
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return fmt.Errorf("%w: loading settings: %v", models.ErrPersistence, err)
	}
	s.values = make(map[string]string, len(rows))
	for _, r := range rows {
		s.values[r.Key] = r.Value
	}
	s.log.Debug().Int("count", len(rows)).Msg("Loaded settings")
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key, or def when the key is unknown.
func (s *Store) Get(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Int coerces the value of key, falling back to def when it is missing or
// not a positive integer.
func (s *Store) Int(key string, def int) int {
	n, err := strconv.Atoi(s.Get(key, ""))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Set persists value and then updates the in-memory copy.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty setting key", models.ErrInvalidInput)
	}
	row := &Setting{Key: key, Value: value}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("Error setting value")
		return fmt.Errorf("%w: setting %s: %v", models.ErrPersistence, key, err)
	}
	s.values[key] = value
	s.log.Debug().Str("key", key).Msg("Setting updated")
	return nil
}

// All returns a copy of every loaded setting.
func (s *Store) All() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Keys returns the loaded keys sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Missing lists the required settings that have no value.
func (s *Store) Missing() []string {
	var out []string
	for _, k := range required {
		if s.Get(k, "") == "" {
			out = append(out, k)
		}
	}
	return out
}

// UpdateFromJSON sets every key of a JSON object. Scalars are stored in
// their textual form; nested objects and arrays are rejected before any
// value is written.
func (s *Store) UpdateFromJSON(ctx context.Context, data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: decoding settings JSON: %v", models.ErrMalformed, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case string:
			values[k] = tv
		case float64:
			values[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		case bool:
			values[k] = strconv.FormatBool(tv)
		case nil:
			values[k] = ""
		default:
			return fmt.Errorf("%w: setting %s must be a scalar", models.ErrMalformed, k)
		}
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.Set(ctx, k, values[k]); err != nil {
			return err
		}
	}
	return nil
}
