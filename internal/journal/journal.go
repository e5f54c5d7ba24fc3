// Package journal records the retained topics each device publishes, so a
// removed node's topics can be cleared from the broker later.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/homie-device/internal/homie"
	"github.com/nerrad567/homie-device/internal/infrastructure/database"
)

// SQLiteJournal stores retained topics in the retained_topics table.
type SQLiteJournal struct {
	db  *database.DB
	now func() time.Time
}

var _ homie.Journal = (*SQLiteJournal)(nil)

// NewSQLiteJournal returns a journal backed by db. The schema must already
// be migrated.
func NewSQLiteJournal(db *database.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db, now: time.Now}
}

// Record stores the latest payload of a retained topic.
func (j *SQLiteJournal) Record(ctx context.Context, deviceID, topic, payload string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO retained_topics (device_id, topic, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (device_id, topic) DO UPDATE
		SET payload = excluded.payload, updated_at = excluded.updated_at`,
		deviceID, topic, payload, j.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording %s: %w", topic, err)
	}
	return nil
}

// Topics returns the device's recorded topics starting with prefix, sorted.
func (j *SQLiteJournal) Topics(ctx context.Context, deviceID, prefix string) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT topic FROM retained_topics
		WHERE device_id = ?
		ORDER BY topic`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("scanning topic: %w", err)
		}
		if strings.HasPrefix(topic, prefix) {
			topics = append(topics, topic)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating topics: %w", err)
	}
	return topics, nil
}

// Forget removes the given topics of a device in one transaction.
func (j *SQLiteJournal) Forget(ctx context.Context, deviceID string, topics []string) error {
	if len(topics) == 0 {
		return nil
	}

	return j.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			"DELETE FROM retained_topics WHERE device_id = ? AND topic = ?")
		if err != nil {
			return fmt.Errorf("preparing delete: %w", err)
		}
		defer stmt.Close()

		for _, topic := range topics {
			if _, err := stmt.ExecContext(ctx, deviceID, topic); err != nil {
				return fmt.Errorf("forgetting %s: %w", topic, err)
			}
		}
		return nil
	})
}

// Entry is one recorded retained topic.
type Entry struct {
	Topic     string    `json:"topic"`
	Payload   string    `json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Entries returns every recorded topic of a device, sorted by topic.
func (j *SQLiteJournal) Entries(ctx context.Context, deviceID string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT topic, payload, updated_at FROM retained_topics
		WHERE device_id = ?
		ORDER BY topic`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			at string
		)
		if err := rows.Scan(&e.Topic, &e.Payload, &at); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing updated_at of %s: %w", e.Topic, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}
