package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wechat-gpt-bridge/internal/biz/domain"
	"wechat-gpt-bridge/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// conversationRepo implements the Conversation repository on sqlite.
type conversationRepo struct {
	db *sql.DB
}

// NewConversationRepo creates a new Conversation repository.
func NewConversationRepo(dbPath string) (repo.ConversationRepo, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create tables
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_settings (
			open_id TEXT PRIMARY KEY,
			init_role TEXT NOT NULL DEFAULT '',
			init_content TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			open_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_open_id_created_at ON messages(open_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			open_id TEXT NOT NULL,
			prompt TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &conversationRepo{db: db}, nil
}

// AppendExchange inserts the user prompt and assistant reply in one
// transaction, so readers never observe one turn without the other.
func (r *conversationRepo) AppendExchange(ctx context.Context, userID, userContent string, userAt time.Time, assistantContent string, assistantAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin exchange: %w", err)
	}
	defer tx.Rollback()

	const insert = `INSERT INTO messages (open_id, role, content, created_at) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insert, userID, domain.RoleUser, userContent, userAt.Unix()); err != nil {
		return fmt.Errorf("failed to insert user turn: %w", err)
	}
	if _, err := tx.ExecContext(ctx, insert, userID, domain.RoleAssistant, assistantContent, assistantAt.Unix()); err != nil {
		return fmt.Errorf("failed to insert assistant turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit exchange: %w", err)
	}
	return nil
}

// RecentTurns returns at most limit turns within window of now. The query
// selects newest first so the LIMIT bounds the most recent slice, then the
// result is reversed to chronological order for replay.
func (r *conversationRepo) RecentTurns(ctx context.Context, userID string, window time.Duration, limit int) ([]domain.ChatTurn, error) {
	cutoff := time.Now().Add(-window).Unix()
	rows, err := r.db.QueryContext(ctx, `
		SELECT role, content
		FROM messages
		WHERE open_id = ? AND created_at >= ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.ChatTurn
	for rows.Next() {
		var turn domain.ChatTurn
		if err := rows.Scan(&turn.Role, &turn.Content); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}

	// Reverse to oldest-first
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// GetInit returns the per-user settings row, or nil when absent.
func (r *conversationRepo) GetInit(ctx context.Context, userID string) (*domain.UserSettings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT open_id, init_role, init_content, created_at
		FROM user_settings
		WHERE open_id = ?
	`, userID)

	var settings domain.UserSettings
	var createdAt int64
	err := row.Scan(&settings.UserID, &settings.InitRole, &settings.InitContent, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	settings.CreatedAt = time.Unix(createdAt, 0)
	return &settings, nil
}

// UpsertInit creates a default settings row if absent, then updates
// exactly one field.
func (r *conversationRepo) UpsertInit(ctx context.Context, userID, field, value string) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_settings (open_id, created_at) VALUES (?, ?)
	`, userID, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to insert settings row: %w", err)
	}

	var stmt string
	switch field {
	case "role":
		stmt = `UPDATE user_settings SET init_role = ? WHERE open_id = ?`
	case "content":
		stmt = `UPDATE user_settings SET init_content = ? WHERE open_id = ?`
	default:
		return fmt.Errorf("unknown settings field %q", field)
	}
	if _, err := r.db.ExecContext(ctx, stmt, value, userID); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	return nil
}

// SaveImage records a generated image for auditing.
func (r *conversationRepo) SaveImage(ctx context.Context, userID, prompt, url string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO images (open_id, prompt, url, created_at) VALUES (?, ?, ?, ?)
	`, userID, prompt, url, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save image record: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *conversationRepo) Close() error {
	return r.db.Close()
}
