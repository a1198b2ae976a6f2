// Package sqlstore implements the repository contracts on an embedded SQLite
// database using the same table layout as the hosted backend. It backs local
// development, the operator CLI and integration tests.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	appErrors "franklink-backend/pkg/errors"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id               TEXT PRIMARY KEY,
	name             TEXT,
	phone_number     TEXT,
	university       TEXT,
	agent_avatar_url TEXT,
	graduation_year  INTEGER
);

CREATE TABLE IF NOT EXISTS connection_requests (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	initiator_user_id TEXT,
	target_user_id    TEXT,
	status            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_initiator ON connection_requests(initiator_user_id, status);
CREATE INDEX IF NOT EXISTS idx_requests_target ON connection_requests(target_user_id, status);

CREATE TABLE IF NOT EXISTS group_chats (
	chat_guid    TEXT PRIMARY KEY,
	member_count INTEGER NOT NULL DEFAULT 0,
	display_name TEXT
);

CREATE TABLE IF NOT EXISTS group_chat_participants (
	chat_guid TEXT NOT NULL,
	user_id   TEXT NOT NULL,
	PRIMARY KEY (chat_guid, user_id)
);
CREATE INDEX IF NOT EXISTS idx_participants_user ON group_chat_participants(user_id);

CREATE TABLE IF NOT EXISTS career_notes (
	user_id    TEXT PRIMARY KEY,
	body       TEXT NOT NULL DEFAULT '',
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS accounts (
	email         TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	password_hash TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS storage_objects (
	bucket       TEXT NOT NULL,
	path         TEXT NOT NULL,
	content_type TEXT NOT NULL,
	body         BLOB NOT NULL,
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (bucket, path)
);
`

// Store is a SQLite-backed repository.Store and repository.AvatarStorage.
type Store struct {
	db            *sql.DB
	path          string
	publicBaseURL string
	now           func() time.Time
	logger        *zap.Logger
}

var (
	_ repository.Store         = (*Store)(nil)
	_ repository.AvatarStorage = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithPublicBaseURL sets the prefix PublicURL builds object links from.
func WithPublicBaseURL(base string) Option {
	return func(s *Store) { s.publicBaseURL = strings.TrimRight(base, "/") }
}

// WithClock replaces time.Now for note timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = MemoryPath
	}

	dsn := path
	if path != MemoryPath {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:            db,
		path:          path,
		publicBaseURL: "/storage/v1/object/public",
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	s.logger.Debug("sqlite store opened", zap.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the handle for fixtures and the local authenticator.
func (s *Store) DB() *sql.DB {
	return s.db
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(ids []string, extra ...any) []any {
	args := make([]any, 0, len(ids)+len(extra))
	for _, id := range ids {
		args = append(args, id)
	}
	return append(args, extra...)
}

func (s *Store) FetchDirectConnections(ctx context.Context, selfID string, role repository.Role, limit int) ([]domain.ConnectionRequest, error) {
	column := "initiator_user_id"
	if role == repository.RoleTarget {
		column = "target_user_id"
	}
	query := `SELECT initiator_user_id, target_user_id, status FROM connection_requests
		WHERE status = ? AND ` + column + ` = ? ORDER BY id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, domain.ConnectionStatusGroupCreated, selfID, limit)
	if err != nil {
		return nil, fmt.Errorf("query connection_requests (%s): %w", role, err)
	}
	defer rows.Close()

	var out []domain.ConnectionRequest
	for rows.Next() {
		var initiator, target sql.NullString
		var status string
		if err := rows.Scan(&initiator, &target, &status); err != nil {
			return nil, fmt.Errorf("scan connection_requests: %w", err)
		}
		// Rows with a missing side are skipped, not fatal.
		if !initiator.Valid || !target.Valid ||
			strings.TrimSpace(initiator.String) == "" || strings.TrimSpace(target.String) == "" {
			continue
		}
		out = append(out, domain.ConnectionRequest{
			InitiatorUserID: initiator.String,
			TargetUserID:    target.String,
			Status:          status,
		})
	}
	return out, rows.Err()
}

func (s *Store) FetchChatMemberships(ctx context.Context, selfID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_guid FROM group_chat_participants WHERE user_id = ? ORDER BY rowid LIMIT ?`,
		selfID, limit)
	if err != nil {
		return nil, fmt.Errorf("query group_chat_participants: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group_chat_participants: %w", err)
		}
		if id != "" {
			out = append(out, id)
		}
	}
	return out, rows.Err()
}

func (s *Store) FetchChatsByIDs(ctx context.Context, chatIDs []string, minMembers, limit int) ([]domain.Chat, error) {
	if len(chatIDs) == 0 {
		return nil, nil
	}
	query := `SELECT chat_guid, member_count, COALESCE(display_name, '') FROM group_chats
		WHERE chat_guid IN (` + placeholders(len(chatIDs)) + `) AND member_count >= ? LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, stringArgs(chatIDs, minMembers, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query group_chats: %w", err)
	}
	defer rows.Close()

	var out []domain.Chat
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ChatID, &c.MemberCount, &c.DisplayName); err != nil {
			return nil, fmt.Errorf("scan group_chats: %w", err)
		}
		if c.ChatID != "" {
			out = append(out, c)
		}
	}
	return out, rows.Err()
}

func (s *Store) FetchChatMembers(ctx context.Context, chatIDs []string, limit int) ([]domain.ChatMember, error) {
	if len(chatIDs) == 0 {
		return nil, nil
	}
	query := `SELECT chat_guid, user_id FROM group_chat_participants
		WHERE chat_guid IN (` + placeholders(len(chatIDs)) + `) ORDER BY rowid LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, stringArgs(chatIDs, limit)...)
	if err != nil {
		return nil, fmt.Errorf("query group_chat_participants: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatMember
	for rows.Next() {
		var m domain.ChatMember
		if err := rows.Scan(&m.ChatID, &m.UserID); err != nil {
			return nil, fmt.Errorf("scan group_chat_participants: %w", err)
		}
		if m.ChatID != "" && m.UserID != "" {
			out = append(out, m)
		}
	}
	return out, rows.Err()
}

func (s *Store) FetchUserProfiles(ctx context.Context, userIDs []string) ([]domain.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id, COALESCE(name, ''), COALESCE(phone_number, '') FROM users
		WHERE id IN (` + placeholders(len(userIDs)) + `)`

	rows, err := s.db.QueryContext(ctx, query, stringArgs(userIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.PhoneNumber); err != nil {
			return nil, fmt.Errorf("scan users: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var (
		p    domain.Profile
		year sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, COALESCE(name, ''), COALESCE(phone_number, ''),
		COALESCE(university, ''), COALESCE(agent_avatar_url, ''), graduation_year
		FROM users WHERE id = ?`, userID).
		Scan(&p.ID, &p.Name, &p.PhoneNumber, &p.University, &p.AvatarURL, &year)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFound("profile not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	if year.Valid {
		y := int(year.Int64)
		p.GraduationYear = &y
	}
	return &p, nil
}

func (s *Store) UpdateGraduationYear(ctx context.Context, userID string, year *int) error {
	var arg any
	if year != nil {
		arg = *year
	}
	return s.updateUser(ctx, userID, "graduation_year", arg)
}

func (s *Store) UpdateAvatarURL(ctx context.Context, userID, url string) error {
	return s.updateUser(ctx, userID, "agent_avatar_url", url)
}

func (s *Store) updateUser(ctx context.Context, userID, column string, value any) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET `+column+` = ? WHERE id = ?`, value, userID)
	if err != nil {
		return fmt.Errorf("update users.%s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewNotFound("profile not found")
	}
	return nil
}

func (s *Store) GetNotes(ctx context.Context, userID string) (*domain.CareerNotes, error) {
	var (
		n       = domain.CareerNotes{UserID: userID}
		updated sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, updated_at FROM career_notes WHERE user_id = ?`, userID).
		Scan(&n.Body, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.NewNotFound("notes not found")
	}
	if err != nil {
		return nil, fmt.Errorf("query career_notes: %w", err)
	}
	if updated.Valid {
		if t, err := time.Parse(time.RFC3339Nano, updated.String); err == nil {
			n.UpdatedAt = &t
		}
	}
	return &n, nil
}

func (s *Store) UpsertNotes(ctx context.Context, notes domain.CareerNotes) (*domain.CareerNotes, error) {
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO career_notes (user_id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		notes.UserID, notes.Body, now.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("upsert career_notes: %w", err)
	}
	notes.UpdatedAt = &now
	return &notes, nil
}

func (s *Store) Upload(ctx context.Context, bucket, path, contentType string, body io.Reader, upsert bool) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read upload body: %w", err)
	}

	query := `INSERT INTO storage_objects (bucket, path, content_type, body, updated_at) VALUES (?, ?, ?, ?, ?)`
	if upsert {
		query += ` ON CONFLICT(bucket, path) DO UPDATE SET content_type = excluded.content_type,
			body = excluded.body, updated_at = excluded.updated_at`
	}
	_, err = s.db.ExecContext(ctx, query, bucket, path, contentType, data, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		if !upsert && strings.Contains(err.Error(), "UNIQUE") {
			return appErrors.NewValidation("object already exists")
		}
		return fmt.Errorf("insert storage_objects: %w", err)
	}
	return nil
}

func (s *Store) PublicURL(bucket, path string) string {
	return s.publicBaseURL + "/" + bucket + "/" + path
}

// Object returns a stored object and its content type.
func (s *Store) Object(ctx context.Context, bucket, path string) ([]byte, string, error) {
	var (
		body        []byte
		contentType string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT body, content_type FROM storage_objects WHERE bucket = ? AND path = ?`, bucket, path).
		Scan(&body, &contentType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", appErrors.NewNotFound("object not found")
	}
	if err != nil {
		return nil, "", fmt.Errorf("query storage_objects: %w", err)
	}
	return body, contentType, nil
}
