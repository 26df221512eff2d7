package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
)

// =============================================================================
// ACTION JOURNAL
// =============================================================================

// journalTime is fixed width so stored timestamps sort lexically.
const journalTime = "2006-01-02T15:04:05.000000000Z"

// Record implements journal.Recorder. Re-recording the same ID is a no-op.
func (s *LocalStore) Record(ctx context.Context, a journal.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var detail sql.NullString
	if len(a.Detail) > 0 {
		b, err := json.Marshal(a.Detail)
		if err != nil {
			return fmt.Errorf("failed to encode action detail: %w", err)
		}
		detail = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO action_journal (id, kind, actor, target_type, target_id, summary, detail, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Kind), a.Actor, a.TargetType, a.TargetID, a.Summary, detail, a.At.UTC().Format(journalTime),
	)
	if err != nil {
		logging.StoreError("Failed to record action %s: %v", a.Kind, err)
		return err
	}
	return nil
}

// HistoryFilter narrows History.
type HistoryFilter struct {
	Kinds      []journal.Kind
	TargetType string
	TargetID   int
	Since      time.Time
	Limit      int
}

// History returns recorded actions, newest first.
func (s *LocalStore) History(ctx context.Context, f HistoryFilter) ([]journal.Action, error) {
	timer := logging.StartTimer(logging.CategoryStore, "History")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []interface{}
	if len(f.Kinds) > 0 {
		marks := make([]string, len(f.Kinds))
		for i, k := range f.Kinds {
			marks[i] = "?"
			args = append(args, string(k))
		}
		where = append(where, "kind IN ("+strings.Join(marks, ",")+")")
	}
	if f.TargetType != "" {
		where = append(where, "target_type = ?")
		args = append(args, f.TargetType)
	}
	if f.TargetID != 0 {
		where = append(where, "target_id = ?")
		args = append(args, f.TargetID)
	}
	if !f.Since.IsZero() {
		where = append(where, "at >= ?")
		args = append(args, f.Since.UTC().Format(journalTime))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, kind, actor, target_type, target_id, summary, COALESCE(detail, ''), at FROM action_journal`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logging.StoreError("Failed to query journal: %v", err)
		return nil, err
	}
	defer rows.Close()

	var out []journal.Action
	for rows.Next() {
		var a journal.Action
		var kind, detail, at string
		if err := rows.Scan(&a.ID, &kind, &a.Actor, &a.TargetType, &a.TargetID, &a.Summary, &detail, &at); err != nil {
			return nil, err
		}
		a.Kind = journal.Kind(kind)
		if detail != "" {
			if err := json.Unmarshal([]byte(detail), &a.Detail); err != nil {
				logging.StoreError("Skipping unreadable detail for action %s: %v", a.ID, err)
			}
		}
		if t, err := time.Parse(journalTime, at); err == nil {
			a.At = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PruneHistory deletes actions older than before and returns how many went.
func (s *LocalStore) PruneHistory(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM action_journal WHERE at < ?`, before.UTC().Format(journalTime))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	logging.Store("Pruned %d journal entries older than %s", n, before.Format(time.RFC3339))
	return n, nil
}
