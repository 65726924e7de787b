// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package confstore keeps the console's library of saved service
configurations ("confs") in a SQLite database.

A conf is a named, described ServiceDesc that can be launched on the master
any number of times. The desc is stored as YAML, the same document format
used by import and export.
*/
package confstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/core/galaxy"
)

var (
	ErrNotFound      = errors.New("conf not found")
	ErrDuplicateName = errors.New("a conf with this name already exists")

	errDirtySchema = errors.New("conf store schema is dirty")
)

const (
	dataDirPermissions = 0o750

	maxNameLength = 128
)

// Conf is a saved service configuration.
type Conf struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	Desc          galaxy.ServiceDesc `json:"desc"`
	LaunchCount   int                `json:"launch_count"`
	LastServiceID string             `json:"last_service_id,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Store is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Default is the store opened by main.
var Default *Store

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dataDirPermissions); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open conf store: %w", err)
	}

	// SQLite serialises writers; one connection avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping conf store: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()

		return nil, err
	}

	log.Info().
		Str("path", path).
		Msg("Opened conf store")

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `id, name, description, desc_yaml, launch_count, last_service_id, created_at, updated_at`

// List returns every conf ordered by name.
func (s *Store) List(ctx context.Context) ([]Conf, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM confs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list confs: %w", err)
	}
	defer rows.Close()

	confs := []Conf{}

	for rows.Next() {
		conf, err := scanConf(rows)
		if err != nil {
			return nil, err
		}

		confs = append(confs, *conf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list confs: %w", err)
	}

	return confs, nil
}

// Count returns the number of saved confs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM confs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count confs: %w", err)
	}

	return n, nil
}

// Get returns the conf with id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Conf, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM confs WHERE id = ?`, id)

	conf, err := scanConf(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}

	return conf, err
}

// Create saves a new conf. An empty name defaults to the service name.
func (s *Store) Create(ctx context.Context, name, description string, desc galaxy.ServiceDesc) (*Conf, error) {
	desc.Normalize()

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = desc.Name
	}

	if len(name) > maxNameLength {
		return nil, &galaxy.ValidationError{Problems: []galaxy.FieldError{{Field: "name", Reason: "too long"}}}
	}

	descYAML, err := yaml.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("encode conf desc: %w", err)
	}

	now := s.now().UTC()
	conf := &Conf{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Desc:        desc,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO confs (id, name, description, desc_yaml, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		conf.ID, conf.Name, conf.Description, string(descYAML), conf.CreatedAt, conf.UpdatedAt)
	if err != nil {
		return nil, translateError("create conf", err)
	}

	log.Info().
		Str("id", conf.ID).
		Str("name", conf.Name).
		Msg("Saved conf")

	return conf, nil
}

// Update replaces the description and desc of a conf. Its name is kept.
func (s *Store) Update(ctx context.Context, id, description string, desc galaxy.ServiceDesc) (*Conf, error) {
	desc.Normalize()

	if err := desc.Validate(); err != nil {
		return nil, err
	}

	descYAML, err := yaml.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("encode conf desc: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE confs SET description = ?, desc_yaml = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(description), string(descYAML), s.now().UTC(), id)
	if err != nil {
		return nil, translateError("update conf", err)
	}

	if err := expectOneRow(res); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes a conf.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM confs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete conf: %w", err)
	}

	return expectOneRow(res)
}

// RecordLaunch remembers that a conf was submitted as serviceID.
func (s *Store) RecordLaunch(ctx context.Context, id, serviceID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE confs SET launch_count = launch_count + 1, last_service_id = ? WHERE id = ?`,
		serviceID, id)
	if err != nil {
		return fmt.Errorf("record conf launch: %w", err)
	}

	return expectOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConf(row scanner) (*Conf, error) {
	var (
		conf     Conf
		descYAML string
	)

	if err := row.Scan(
		&conf.ID, &conf.Name, &conf.Description, &descYAML,
		&conf.LaunchCount, &conf.LastServiceID, &conf.CreatedAt, &conf.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("read conf: %w", err)
	}

	if err := yaml.Unmarshal([]byte(descYAML), &conf.Desc); err != nil {
		return nil, fmt.Errorf("decode desc of conf %s: %w", conf.ID, err)
	}

	return &conf, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func translateError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicateName
	}

	return fmt.Errorf("%s: %w", op, err)
}
