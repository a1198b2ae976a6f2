/**
 * =============================================================================
 * Repository Package - Data Access Contracts for the Franklink Backend
 * =============================================================================
 *
 * The connection graph and the account pages read from a small relational
 * schema owned by the BaaS:
 *
 *   connection_requests      (initiator_user_id, target_user_id, status)
 *   group_chat_participants  (chat_guid, user_id)
 *   group_chats              (chat_guid, member_count, display_name)
 *   users                    (id, name, phone_number, university, ...)
 *   career_notes             (user_id, body, updated_at)
 *
 * Three interchangeable backends implement these contracts:
 *
 *   supabase  - PostgREST rows, GoTrue auth and Storage (production)
 *   sqlstore  - the same schema in an embedded SQLite file (local dev, tests)
 *   ddb       - a single-table DynamoDB projection of the schema
 *
 * Every row is mapped to a typed domain record at this boundary. Rows with
 * blank identifiers are dropped here so the service layer never sees them.
 */
package repository

import (
	"context"
	"io"

	"franklink-backend/internal/domain"
)

// Role selects which side of a connection request the signed-in user is on.
type Role int

const (
	RoleInitiator Role = iota
	RoleTarget
)

func (r Role) String() string {
	if r == RoleTarget {
		return "target"
	}
	return "initiator"
}

// RelationshipReader provides the read queries the connection graph is
// assembled from. Every method is bounded by an explicit row limit.
type RelationshipReader interface {
	// FetchDirectConnections returns finalized requests where selfID plays role.
	FetchDirectConnections(ctx context.Context, selfID string, role Role, limit int) ([]domain.ConnectionRequest, error)
	// FetchChatMemberships returns the chat ids selfID participates in.
	FetchChatMemberships(ctx context.Context, selfID string, limit int) ([]string, error)
	// FetchChatsByIDs returns chats among chatIDs with at least minMembers members.
	FetchChatsByIDs(ctx context.Context, chatIDs []string, minMembers, limit int) ([]domain.Chat, error)
	// FetchChatMembers returns every participant row of the given chats.
	FetchChatMembers(ctx context.Context, chatIDs []string, limit int) ([]domain.ChatMember, error)
	// FetchUserProfiles returns whatever users exist among userIDs. Missing
	// ids are simply absent from the result.
	FetchUserProfiles(ctx context.Context, userIDs []string) ([]domain.User, error)
}

// ProfileStore reads and updates the signed-in user's row.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateGraduationYear(ctx context.Context, userID string, year *int) error
	UpdateAvatarURL(ctx context.Context, userID, url string) error
}

// NotesStore persists the dashboard career notes.
type NotesStore interface {
	GetNotes(ctx context.Context, userID string) (*domain.CareerNotes, error)
	UpsertNotes(ctx context.Context, notes domain.CareerNotes) (*domain.CareerNotes, error)
}

// Store is the full data backend used by the services.
type Store interface {
	RelationshipReader
	ProfileStore
	NotesStore
}

// AvatarStorage stores profile pictures in an object bucket.
type AvatarStorage interface {
	Upload(ctx context.Context, bucket, path, contentType string, body io.Reader, upsert bool) error
	PublicURL(bucket, path string) string
}

// Authenticator fronts the identity provider.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	UserFromToken(ctx context.Context, token string) (string, error)
	UpdatePassword(ctx context.Context, token, password string) error
}
