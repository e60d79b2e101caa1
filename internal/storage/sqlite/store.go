// Package sqlite persists actor progress between runs in a SQLite file
// using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/cory-johannsen/tactica/internal/game/actor"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrSaveNotFound is returned when no save has the requested name.
var ErrSaveNotFound = errors.New("save not found")

// Save is one named snapshot of the friendly actors in an area.
type Save struct {
	Name     string
	AreaID   string
	SavedAt  time.Time
	Progress []actor.Progress
}

// Store reads and writes saves.
type Store struct {
	db *sql.DB
}

// Open opens the save file at path, creating it if needed, and applies
// every pending migration.
//
// Precondition: path must be non-empty and its directory must exist.
// Postcondition: returns a ready Store or a non-nil error; the caller must Close it.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("save path is required")
	}
	path = filepath.Clean(path)
	if err := Migrate(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening save file: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging save file: %w", err)
	}
	return &Store{db: db}, nil
}

// NewMigrator returns a migrator over the embedded schema for the save file
// at path. The caller must Close it.
func NewMigrator(path string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}

// Migrate brings the schema of the save file at path up to date.
//
// Postcondition: returns nil when the schema was already current.
func Migrate(path string) error {
	m, err := NewMigrator(path)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrating save file: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Put writes save under its name, replacing any previous save with that name.
//
// Precondition: save.Name must be non-empty.
// Postcondition: the whole save is written or, on error, nothing changes.
func (s *Store) Put(ctx context.Context, save Save) (err error) {
	if strings.TrimSpace(save.Name) == "" {
		return errors.New("save name is required")
	}
	if save.SavedAt.IsZero() {
		save.SavedAt = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM saves WHERE name = ?`, save.Name); err != nil {
		return fmt.Errorf("replacing save %q: %w", save.Name, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO saves (name, area_id, saved_at) VALUES (?, ?, ?)`,
		save.Name, save.AreaID, save.SavedAt.UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("inserting save %q: %w", save.Name, err)
	}
	for pos, p := range save.Progress {
		if err = putProgress(ctx, tx, save.Name, pos, p); err != nil {
			return err
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing save %q: %w", save.Name, err)
	}
	return nil
}

func putProgress(ctx context.Context, tx *sql.Tx, name string, pos int, p actor.Progress) error {
	levels, err := json.Marshal(p.Levels)
	if err != nil {
		return fmt.Errorf("encoding levels of %q: %w", p.ActorID, err)
	}
	cooldowns, err := json.Marshal(p.Cooldowns)
	if err != nil {
		return fmt.Errorf("encoding cooldowns of %q: %w", p.ActorID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO actor_progress (save_name, position, actor_id, hp, xp, levels, cooldowns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		name, pos, p.ActorID, p.HP, p.XP, string(levels), string(cooldowns),
	); err != nil {
		return fmt.Errorf("inserting progress of %q: %w", p.ActorID, err)
	}
	for i, e := range p.Effects {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO effect_timers (save_name, position, ordinal, def_id, duration_millis, elapsed_millis)
			VALUES (?, ?, ?, ?, ?, ?)`,
			name, pos, i, e.DefID, e.DurationMillis, e.ElapsedMillis,
		); err != nil {
			return fmt.Errorf("inserting effect %q of %q: %w", e.DefID, p.ActorID, err)
		}
	}
	return nil
}

// Get reads the save called name.
//
// Postcondition: returns ErrSaveNotFound if there is none.
func (s *Store) Get(ctx context.Context, name string) (Save, error) {
	out := Save{Name: name}
	var savedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT area_id, saved_at FROM saves WHERE name = ?`, name,
	).Scan(&out.AreaID, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Save{}, fmt.Errorf("%w: %q", ErrSaveNotFound, name)
	}
	if err != nil {
		return Save{}, fmt.Errorf("reading save %q: %w", name, err)
	}
	out.SavedAt = time.UnixMilli(savedAt)

	rows, err := s.db.QueryContext(ctx, `
		SELECT actor_id, hp, xp, levels, cooldowns
		FROM actor_progress WHERE save_name = ? ORDER BY position`, name)
	if err != nil {
		return Save{}, fmt.Errorf("reading progress of %q: %w", name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p actor.Progress
		var levels, cooldowns string
		if err := rows.Scan(&p.ActorID, &p.HP, &p.XP, &levels, &cooldowns); err != nil {
			return Save{}, fmt.Errorf("scanning progress of %q: %w", name, err)
		}
		if err := json.Unmarshal([]byte(levels), &p.Levels); err != nil {
			return Save{}, fmt.Errorf("decoding levels of %q: %w", p.ActorID, err)
		}
		if err := json.Unmarshal([]byte(cooldowns), &p.Cooldowns); err != nil {
			return Save{}, fmt.Errorf("decoding cooldowns of %q: %w", p.ActorID, err)
		}
		out.Progress = append(out.Progress, p)
	}
	if err := rows.Err(); err != nil {
		return Save{}, fmt.Errorf("reading progress of %q: %w", name, err)
	}
	if err := s.loadEffects(ctx, &out); err != nil {
		return Save{}, err
	}
	return out, nil
}

func (s *Store) loadEffects(ctx context.Context, out *Save) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, def_id, duration_millis, elapsed_millis
		FROM effect_timers WHERE save_name = ? ORDER BY position, ordinal`, out.Name)
	if err != nil {
		return fmt.Errorf("reading effects of %q: %w", out.Name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var pos int
		var e actor.SavedEffect
		if err := rows.Scan(&pos, &e.DefID, &e.DurationMillis, &e.ElapsedMillis); err != nil {
			return fmt.Errorf("scanning effect of %q: %w", out.Name, err)
		}
		if pos < 0 || pos >= len(out.Progress) {
			return fmt.Errorf("save %q: effect %q belongs to missing actor %d", out.Name, e.DefID, pos)
		}
		out.Progress[pos].Effects = append(out.Progress[pos].Effects, e)
	}
	return rows.Err()
}

// List returns the name and time of every save, newest first.
func (s *Store) List(ctx context.Context) ([]Save, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, area_id, saved_at FROM saves ORDER BY saved_at DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	defer rows.Close()
	var out []Save
	for rows.Next() {
		var sv Save
		var savedAt int64
		if err := rows.Scan(&sv.Name, &sv.AreaID, &savedAt); err != nil {
			return nil, fmt.Errorf("scanning save: %w", err)
		}
		sv.SavedAt = time.UnixMilli(savedAt)
		out = append(out, sv)
	}
	return out, rows.Err()
}

// Delete removes the save called name.
//
// Postcondition: returns ErrSaveNotFound if there is none.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting save %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting save %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrSaveNotFound, name)
	}
	return nil
}
