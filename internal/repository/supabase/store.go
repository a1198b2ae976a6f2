// Package supabase implements the repository contracts against a hosted
// Supabase project: PostgREST for rows, GoTrue for sessions and Storage for
// avatars. The service role key is used for every call, so row filters are
// always scoped to the signed-in user explicitly.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
	"github.com/supabase-community/gotrue-go/types"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	appErrors "franklink-backend/pkg/errors"
)

// Store talks to Supabase. It implements repository.Store,
// repository.AvatarStorage and repository.Authenticator.
type Store struct {
	client *supa.Client
	logger *zap.Logger
	now    func() time.Time
}

var (
	_ repository.Store         = (*Store)(nil)
	_ repository.AvatarStorage = (*Store)(nil)
	_ repository.Authenticator = (*Store)(nil)
)

// New creates a client for the project at url using the service role key.
func New(url, serviceRoleKey string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := supa.NewClient(url, serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &Store{client: client, logger: logger, now: time.Now}, nil
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05.999999999-07"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type requestRow struct {
	InitiatorUserID *string `json:"initiator_user_id"`
	TargetUserID    *string `json:"target_user_id"`
	Status          string  `json:"status"`
}

type participantRow struct {
	ChatGUID *string `json:"chat_guid"`
	UserID   *string `json:"user_id"`
}

type chatRow struct {
	ChatGUID    *string `json:"chat_guid"`
	MemberCount *int    `json:"member_count"`
	DisplayName *string `json:"display_name"`
}

type userRow struct {
	ID             string  `json:"id"`
	Name           *string `json:"name"`
	PhoneNumber    *string `json:"phone_number"`
	University     *string `json:"university"`
	AvatarURL      *string `json:"agent_avatar_url"`
	GraduationYear *int    `json:"graduation_year"`
}

type notesRow struct {
	UserID    string  `json:"user_id"`
	Body      *string `json:"body"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func decode[T any](table string, data []byte, err error) ([]T, error) {
	if err != nil {
		return nil, appErrors.NewUnavailable("query "+table+" failed", err)
	}
	var rows []T
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", table, err)
	}
	return rows, nil
}

func (s *Store) FetchDirectConnections(ctx context.Context, selfID string, role repository.Role, limit int) ([]domain.ConnectionRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	column := "initiator_user_id"
	if role == repository.RoleTarget {
		column = "target_user_id"
	}
	data, _, err := s.client.From("connection_requests").
		Select("initiator_user_id,target_user_id,status", "", false).
		Eq("status", domain.ConnectionStatusGroupCreated).
		Eq(column, selfID).
		Limit(limit, "").
		Execute()
	rows, err := decode[requestRow]("connection_requests", data, err)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ConnectionRequest, 0, len(rows))
	for _, r := range rows {
		initiator, target := deref(r.InitiatorUserID), deref(r.TargetUserID)
		if initiator == "" || target == "" {
			continue
		}
		out = append(out, domain.ConnectionRequest{InitiatorUserID: initiator, TargetUserID: target, Status: r.Status})
	}
	return out, nil
}

func (s *Store) FetchChatMemberships(ctx context.Context, selfID string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := s.client.From("group_chat_participants").
		Select("chat_guid", "", false).
		Eq("user_id", selfID).
		Limit(limit, "").
		Execute()
	rows, err := decode[participantRow]("group_chat_participants", data, err)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if id := deref(r.ChatGUID); id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Store) FetchChatsByIDs(ctx context.Context, chatIDs []string, minMembers, limit int) ([]domain.Chat, error) {
	if len(chatIDs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := s.client.From("group_chats").
		Select("chat_guid,member_count,display_name", "", false).
		In("chat_guid", chatIDs).
		Gte("member_count", strconv.Itoa(minMembers)).
		Limit(limit, "").
		Execute()
	rows, err := decode[chatRow]("group_chats", data, err)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Chat, 0, len(rows))
	for _, r := range rows {
		id := deref(r.ChatGUID)
		if id == "" {
			continue
		}
		out = append(out, domain.Chat{ChatID: id, MemberCount: deref(r.MemberCount), DisplayName: deref(r.DisplayName)})
	}
	return out, nil
}

func (s *Store) FetchChatMembers(ctx context.Context, chatIDs []string, limit int) ([]domain.ChatMember, error) {
	if len(chatIDs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := s.client.From("group_chat_participants").
		Select("chat_guid,user_id", "", false).
		In("chat_guid", chatIDs).
		Limit(limit, "").
		Execute()
	rows, err := decode[participantRow]("group_chat_participants", data, err)
	if err != nil {
		return nil, err
	}

	out := make([]domain.ChatMember, 0, len(rows))
	for _, r := range rows {
		chat, user := deref(r.ChatGUID), deref(r.UserID)
		if chat == "" || user == "" {
			continue
		}
		out = append(out, domain.ChatMember{ChatID: chat, UserID: user})
	}
	return out, nil
}

func (s *Store) FetchUserProfiles(ctx context.Context, userIDs []string) ([]domain.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := s.client.From("users").
		Select("id,name,phone_number", "", false).
		In("id", userIDs).
		Execute()
	rows, err := decode[userRow]("users", data, err)
	if err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" {
			continue
		}
		out = append(out, domain.User{ID: r.ID, DisplayName: deref(r.Name), PhoneNumber: deref(r.PhoneNumber)})
	}
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := s.client.From("users").
		Select("id,name,phone_number,university,agent_avatar_url,graduation_year", "", false).
		Eq("id", userID).
		Limit(1, "").
		Execute()
	rows, err := decode[userRow]("users", data, err)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, appErrors.NewNotFound("profile not found")
	}
	r := rows[0]
	return &domain.Profile{
		ID:             r.ID,
		Name:           deref(r.Name),
		PhoneNumber:    deref(r.PhoneNumber),
		University:     deref(r.University),
		AvatarURL:      deref(r.AvatarURL),
		GraduationYear: r.GraduationYear,
	}, nil
}

func (s *Store) UpdateGraduationYear(ctx context.Context, userID string, year *int) error {
	return s.updateUser(ctx, userID, map[string]any{"graduation_year": year})
}

func (s *Store) UpdateAvatarURL(ctx context.Context, userID, url string) error {
	return s.updateUser(ctx, userID, map[string]any{"agent_avatar_url": url})
}

func (s *Store) updateUser(ctx context.Context, userID string, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, _, err := s.client.From("users").
		Update(values, "representation", "").
		Eq("id", userID).
		Execute()
	rows, err := decode[userRow]("users", data, err)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return appErrors.NewNotFound("profile not found")
	}
	return nil
}

func (s *Store) GetNotes(ctx context.Context, userID string) (*domain.CareerNotes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := s.client.From("career_notes").
		Select("user_id,body,updated_at", "", false).
		Eq("user_id", userID).
		Limit(1, "").
		Execute()
	rows, err := decode[notesRow]("career_notes", data, err)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, appErrors.NewNotFound("notes not found")
	}
	return rows[0].toDomain(), nil
}

func (s *Store) UpsertNotes(ctx context.Context, notes domain.CareerNotes) (*domain.CareerNotes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body := notes.Body
	stamp := s.now().UTC().Format(time.RFC3339Nano)
	data, _, err := s.client.From("career_notes").
		Upsert(notesRow{UserID: notes.UserID, Body: &body, UpdatedAt: &stamp}, "user_id", "representation", "").
		Execute()
	rows, err := decode[notesRow]("career_notes", data, err)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return &notes, nil
	}
	return rows[0].toDomain(), nil
}

func (r notesRow) toDomain() *domain.CareerNotes {
	n := &domain.CareerNotes{UserID: r.UserID, Body: deref(r.Body)}
	if t, ok := parseTimestamp(deref(r.UpdatedAt)); ok {
		n.UpdatedAt = &t
	}
	return n
}

func (s *Store) Upload(ctx context.Context, bucket, path, contentType string, body io.Reader, upsert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.Storage.UploadFile(bucket, path, body, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return appErrors.NewUnavailable("avatar upload failed", err)
	}
	return nil
}

func (s *Store) PublicURL(bucket, path string) string {
	return s.client.Storage.GetPublicUrl(bucket, path).SignedURL
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.client.Auth.SignInWithEmailPassword(email, password)
	if err != nil {
		s.logger.Debug("sign in rejected", zap.Error(err))
		return nil, appErrors.NewUnauthorized("Invalid login credentials", err)
	}
	return &domain.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		UserID:       resp.User.ID.String(),
	}, nil
}

func (s *Store) UserFromToken(ctx context.Context, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	user, err := s.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return "", appErrors.NewUnauthorized("invalid session", err)
	}
	return user.ID.String(), nil
}

func (s *Store) UpdatePassword(ctx context.Context, token, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.client.Auth.WithToken(token).UpdateUser(types.UpdateUserRequest{Password: &password})
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "401") {
			return appErrors.NewUnauthorized("invalid session", err)
		}
		return appErrors.NewUnavailable("password update failed", err)
	}
	return nil
}
