package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// sqliteJournal implements Journal on the session_events and remote_calls tables.
type sqliteJournal struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

func (r *sqliteJournal) AppendSessionEvent(ctx context.Context, data SessionEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := r.b.Insert(tableSessionEvents).
		Columns("sequence", "timestamp", "session_id", "action", "mode", "detail").
		Values(seqNum, time.Now().UTC().UnixMilli(), data.SessionID, data.Action, data.Mode, data.Detail).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

func (r *sqliteJournal) AppendRemoteCall(ctx context.Context, data RemoteCallData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := r.b.Insert(tableRemoteCalls).
		Columns("sequence", "timestamp", "operation", "request_id", "success", "latency_ms", "error").
		Values(seqNum, time.Now().UTC().UnixMilli(), data.Operation, data.RequestID, data.Success, data.LatencyMs, data.ErrorMessage).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save remote call: %w", err)
	}
	return nil
}

func (r *sqliteJournal) SessionEvents(ctx context.Context, opts QueryOpts) ([]SessionEvent, error) {
	sel := r.b.Select("sequence", "timestamp", "session_id", "action", "mode", "detail").
		From(entsql.Table(tableSessionEvents)).
		Where(entsql.GT("sequence", opts.After)).
		OrderBy(entsql.Asc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		var ts int64
		if err := rows.Scan(&e.Sequence, &ts, &e.SessionID, &e.Action, &e.Mode, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *sqliteJournal) RemoteCalls(ctx context.Context, opts QueryOpts) ([]RemoteCall, error) {
	sel := r.b.Select("sequence", "timestamp", "operation", "request_id", "success", "latency_ms", "error").
		From(entsql.Table(tableRemoteCalls)).
		Where(entsql.GT("sequence", opts.After)).
		OrderBy(entsql.Asc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	query, args := sel.Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query remote calls: %w", err)
	}
	defer rows.Close()

	var calls []RemoteCall
	for rows.Next() {
		var c RemoteCall
		var ts int64
		if err := rows.Scan(&c.Sequence, &ts, &c.Operation, &c.RequestID, &c.Success, &c.LatencyMs, &c.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan remote call: %w", err)
		}
		c.Timestamp = time.UnixMilli(ts).UTC()
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
