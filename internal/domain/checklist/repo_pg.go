package checklist

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldmed/pma/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) GetState(ctx context.Context) (State, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT label, checked FROM checklist_item`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	state := make(State)
	for rows.Next() {
		var label string
		var checked bool
		if err := rows.Scan(&label, &checked); err != nil {
			return nil, err
		}
		state[label] = checked
	}
	return state, rows.Err()
}

func (r *repoPG) SetItem(ctx context.Context, label string, checked bool) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO checklist_item (label, checked) VALUES ($1, $2)
		ON CONFLICT (label) DO UPDATE SET checked = EXCLUDED.checked`,
		label, checked)
	return err
}

func (r *repoPG) ClearState(ctx context.Context) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE checklist_item SET checked = FALSE`)
	return err
}

func (r *repoPG) AddLogEntry(ctx context.Context, e *LogEntry) error {
	e.ID = uuid.New()
	// seq comes from the sequence so that entries logged within the same
	// clock tick still order deterministically.
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO checklist_log (id, ts, actor_name, action, item)
		VALUES ($1,$2,$3,$4,$5) RETURNING seq`,
		e.ID, e.Timestamp, e.ActorName, e.Action, e.Item).Scan(&e.Seq)
}

func (r *repoPG) TrimLog(ctx context.Context, keep int) error {
	_, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM checklist_log
		WHERE seq NOT IN (SELECT seq FROM checklist_log ORDER BY seq DESC LIMIT $1)`,
		keep)
	return err
}

func (r *repoPG) ListLog(ctx context.Context, limit int) ([]*LogEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, seq, ts, actor_name, action, item
		FROM checklist_log ORDER BY seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Seq, &e.Timestamp, &e.ActorName, &e.Action, &e.Item); err != nil {
			return nil, err
		}
		items = append(items, &e)
	}
	return items, rows.Err()
}
