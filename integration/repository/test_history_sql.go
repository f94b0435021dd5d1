package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-connect/integration/domain/channel"
)

// TestHistoryRepository stores connection test runs in a plain table shared
// by sqlite and postgres.
type TestHistoryRepository struct {
	db     *sql.DB
	driver string
}

func NewTestHistoryRepository(db *sql.DB, driver string) *TestHistoryRepository {
	return &TestHistoryRepository{db: db, driver: driver}
}

func (r *TestHistoryRepository) InitSchema(ctx context.Context) error {
	createTable := `
		CREATE TABLE IF NOT EXISTS channel_test_history (
			id TEXT PRIMARY KEY,
			chatbot_id TEXT NOT NULL,
			channel_type TEXT NOT NULL,
			passed BOOLEAN NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			duration_ms BIGINT NOT NULL DEFAULT 0,
			tested_at TIMESTAMP NOT NULL
		)`
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create channel_test_history: %w", err)
	}
	createIndex := `CREATE INDEX IF NOT EXISTS idx_channel_test_history_lookup ON channel_test_history (chatbot_id, channel_type, tested_at)`
	if _, err := r.db.ExecContext(ctx, createIndex); err != nil {
		return fmt.Errorf("create channel_test_history index: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for postgres.
func (r *TestHistoryRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *TestHistoryRepository) Record(ctx context.Context, rec channel.TestRecord) error {
	query := r.rebind(`
		INSERT INTO channel_test_history (id, chatbot_id, channel_type, passed, message, duration_ms, tested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, rec.ID, rec.ChatbotID, string(rec.ChannelType), rec.Passed, rec.Message, rec.DurationMs, rec.TestedAt.UTC())
	return err
}

func (r *TestHistoryRepository) List(ctx context.Context, chatbotID string, t channel.ChannelType, limit int) ([]channel.TestRecord, error) {
	query := r.rebind(`
		SELECT id, chatbot_id, channel_type, passed, message, duration_ms, tested_at
		FROM channel_test_history
		WHERE chatbot_id = ? AND channel_type = ?
		ORDER BY tested_at DESC
		LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, query, chatbotID, string(t), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []channel.TestRecord{}
	for rows.Next() {
		var (
			rec      channel.TestRecord
			typ      string
			testedAt time.Time
		)
		if err := rows.Scan(&rec.ID, &rec.ChatbotID, &typ, &rec.Passed, &rec.Message, &rec.DurationMs, &testedAt); err != nil {
			return nil, err
		}
		rec.ChannelType = channel.ChannelType(typ)
		rec.TestedAt = testedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
