// Package storage persists submitted leads and their attachments with sqlx.
// Queries are written with '?' placeholders and rebound for the driver.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/internal/lead"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = errors.New("storage: lead not found")

const (
	defaultListLimit = 10
	maxListLimit     = 50
)

// Repository stores leads. It satisfies lead.Repository and lead.Transactor.
type Repository struct {
	queries
	db *sqlx.DB
}

// New wraps an open connection.
func New(db *sqlx.DB) *Repository {
	return &Repository{queries: queries{q: db}, db: db}
}

// Ping checks that the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// WithinTx runs fn against a transaction-scoped repository. The
// transaction is committed when fn returns nil and rolled back otherwise.
func (r *Repository) WithinTx(ctx context.Context, fn func(lead.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(queries{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// queries runs against either the pool or a transaction.
type queries struct {
	q sqlx.ExtContext
}

// leadRow is the leads table row.
type leadRow struct {
	lead.Record
	ExtraJSON string `db:"extra_json"`
}

const leadColumns = `id, ref, tg_user_id, tg_username, full_name, service_id, service,
	branch, task, deadline, budget, contact, extra_json, created_at`

// CreateLead inserts the lead row and returns its id. Files are stored
// separately with AttachFiles.
func (s queries) CreateLead(ctx context.Context, rec lead.Record) (int64, error) {
	extra := rec.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	raw, err := json.Marshal(extra)
	if err != nil {
		return 0, fmt.Errorf("encode extra: %w", err)
	}

	const query = `INSERT INTO leads (ref, tg_user_id, tg_username, full_name, service_id,
		service, branch, task, deadline, budget, contact, extra_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`
	var id int64
	err = s.q.QueryRowxContext(ctx, s.q.Rebind(query),
		rec.Ref, rec.TelegramUserID, rec.TelegramUsername, rec.FullName, rec.ServiceID,
		rec.Service, string(rec.Branch), rec.Task, rec.Deadline, rec.Budget, rec.Contact,
		string(raw), rec.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

// AttachFiles stores files for leadID keeping their order.
func (s queries) AttachFiles(ctx context.Context, leadID int64, files []lead.File) error {
	query := s.q.Rebind(`INSERT INTO lead_files (lead_id, position, file_type, file_id) VALUES (?, ?, ?, ?)`)
	for i, f := range files {
		if _, err := s.q.ExecContext(ctx, query, leadID, i, string(f.Type), f.ID); err != nil {
			return fmt.Errorf("insert file %d: %w", i, err)
		}
	}
	return nil
}

// GetLead loads a lead together with its files.
func (s queries) GetLead(ctx context.Context, id int64) (lead.Record, error) {
	var row leadRow
	err := sqlx.GetContext(ctx, s.q, &row, s.q.Rebind(`SELECT `+leadColumns+` FROM leads WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return lead.Record{}, ErrNotFound
	}
	if err != nil {
		return lead.Record{}, fmt.Errorf("select lead %d: %w", id, err)
	}
	rec, err := row.record()
	if err != nil {
		return lead.Record{}, err
	}
	if rec.Files, err = s.ListFiles(ctx, id); err != nil {
		return lead.Record{}, err
	}
	return rec, nil
}

// ListFiles returns the files of a lead in attachment order.
func (s queries) ListFiles(ctx context.Context, leadID int64) ([]lead.File, error) {
	var files []lead.File
	err := sqlx.SelectContext(ctx, s.q, &files, s.q.Rebind(
		`SELECT file_type, file_id FROM lead_files WHERE lead_id = ? ORDER BY position`), leadID)
	if err != nil {
		return nil, fmt.Errorf("select files of lead %d: %w", leadID, err)
	}
	return files, nil
}

// ListRecent returns the newest leads first, without files. limit is
// clamped to [1, 50]; zero selects the default of 10.
func (s queries) ListRecent(ctx context.Context, limit int) ([]lead.Record, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	var rows []leadRow
	err := sqlx.SelectContext(ctx, s.q, &rows, s.q.Rebind(
		`SELECT `+leadColumns+` FROM leads ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("select recent leads: %w", err)
	}
	out := make([]lead.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r leadRow) record() (lead.Record, error) {
	rec := r.Record
	rec.Extra = map[string]string{}
	if r.ExtraJSON != "" {
		if err := json.Unmarshal([]byte(r.ExtraJSON), &rec.Extra); err != nil {
			return lead.Record{}, fmt.Errorf("decode extra of lead %d: %w", r.ID, err)
		}
	}
	return rec, nil
}
