package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists audit entries to the audit_logs table.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Log writes an entry, filling id, timestamp, and payload digest when
// the caller left them empty.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.PayloadDigest == "" {
		entry.PayloadDigest = DigestJSON(entry.Metadata)
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO audit_logs (
	id, actor, roles, action, resource_type, resource_id,
	metadata, payload_digest, ip, user_agent, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`, entry.ID, entry.Actor, entry.Roles, entry.Action, entry.ResourceType, entry.ResourceID,
		entry.Metadata, entry.PayloadDigest, entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}

// MaxRecentEntries caps one read of the audit trail.
const MaxRecentEntries = 500

// Recent returns the newest entries, most recent first. Limits outside
// (0, MaxRecentEntries] are clamped.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("audit repo: nil db")
	}
	if limit <= 0 || limit > MaxRecentEntries {
		limit = MaxRecentEntries
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, actor, roles, action, resource_type, resource_id,
	metadata, payload_digest, ip, user_agent, created_at
FROM audit_logs
ORDER BY created_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var metadata []byte
		if err := rows.Scan(
			&entry.ID, &entry.Actor, &entry.Roles, &entry.Action,
			&entry.ResourceType, &entry.ResourceID, &metadata,
			&entry.PayloadDigest, &entry.IP, &entry.UserAgent, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Metadata = metadata
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
