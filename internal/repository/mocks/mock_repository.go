// Package mocks provides mock implementations of repository interfaces for testing.
package mocks

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	appErrors "franklink-backend/pkg/errors"
)

// MockRepository provides an in-memory implementation of repository.Store,
// AvatarStorage and Authenticator. It is useful for unit testing services
// without requiring a real backend.
type MockRepository struct {
	mu sync.RWMutex

	requests []domain.ConnectionRequest
	members  []domain.ChatMember
	chats    map[string]domain.Chat
	users    map[string]domain.User
	profiles map[string]*domain.Profile
	notes    map[string]domain.CareerNotes
	objects  map[string][]byte
	accounts map[string]mockAccount
	tokens   map[string]string // token -> userID

	// Calls counts invocations per method name.
	calls map[string]int
	// LastLimits records the limit argument per method name.
	lastLimits map[string]int

	// For testing error scenarios
	shouldFailOn map[string]error
}

type mockAccount struct {
	userID   string
	password string
}

var (
	_ repository.Store         = (*MockRepository)(nil)
	_ repository.AvatarStorage = (*MockRepository)(nil)
	_ repository.Authenticator = (*MockRepository)(nil)
)

// NewMockRepository creates a new mock repository instance.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		chats:        make(map[string]domain.Chat),
		users:        make(map[string]domain.User),
		profiles:     make(map[string]*domain.Profile),
		notes:        make(map[string]domain.CareerNotes),
		objects:      make(map[string][]byte),
		accounts:     make(map[string]mockAccount),
		tokens:       make(map[string]string),
		calls:        make(map[string]int),
		lastLimits:   make(map[string]int),
		shouldFailOn: make(map[string]error),
	}
}

// SetError configures the mock to return an error for a specific method.
// Useful for testing error handling in services.
func (m *MockRepository) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (m *MockRepository) ClearErrors() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailOn = make(map[string]error)
}

// Calls returns how many times method was invoked.
func (m *MockRepository) Calls(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[method]
}

// LastLimit returns the limit passed on the most recent call to method.
func (m *MockRepository) LastLimit(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastLimits[method]
}

// enter records the call and returns the configured error, if any.
func (m *MockRepository) enter(method string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	if limit > 0 {
		m.lastLimits[method] = limit
	}
	return m.shouldFailOn[method]
}

// Seeding helpers

// AddUser stores a users row.
func (m *MockRepository) AddUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// AddProfile stores a full profile and the matching users row.
func (m *MockRepository) AddProfile(p domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.profiles[p.ID] = &cp
	m.users[p.ID] = domain.User{ID: p.ID, DisplayName: p.Name, PhoneNumber: p.PhoneNumber}
}

// AddRequest stores a connection_requests row.
func (m *MockRepository) AddRequest(initiator, target, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, domain.ConnectionRequest{
		InitiatorUserID: initiator,
		TargetUserID:    target,
		Status:          status,
	})
}

// AddChat stores a chat and its participant rows. memberCount is stored as
// given so tests can model stale counts.
func (m *MockRepository) AddChat(chatID, displayName string, memberCount int, userIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chats[chatID] = domain.Chat{ChatID: chatID, MemberCount: memberCount, DisplayName: displayName}
	for _, id := range userIDs {
		m.members = append(m.members, domain.ChatMember{ChatID: chatID, UserID: id})
	}
}

// AddAccount registers credentials and the token SignIn will issue.
func (m *MockRepository) AddAccount(email, password, userID, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[email] = mockAccount{userID: userID, password: password}
	m.tokens[token] = userID
}

// Object returns an uploaded avatar.
func (m *MockRepository) Object(bucket, path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[bucket+"/"+path]
	return b, ok
}

// Password returns the stored password for email.
func (m *MockRepository) Password(email string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts[email].password
}

// Relationship operations

func (m *MockRepository) FetchDirectConnections(ctx context.Context, selfID string, role repository.Role, limit int) ([]domain.ConnectionRequest, error) {
	if err := m.enter("FetchDirectConnections", limit); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.ConnectionRequest
	for _, r := range m.requests {
		if r.Status != domain.ConnectionStatusGroupCreated {
			continue
		}
		if (role == repository.RoleInitiator && r.InitiatorUserID == selfID) ||
			(role == repository.RoleTarget && r.TargetUserID == selfID) {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockRepository) FetchChatMemberships(ctx context.Context, selfID string, limit int) ([]string, error) {
	if err := m.enter("FetchChatMemberships", limit); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for _, cm := range m.members {
		if cm.UserID == selfID {
			out = append(out, cm.ChatID)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockRepository) FetchChatsByIDs(ctx context.Context, chatIDs []string, minMembers, limit int) ([]domain.Chat, error) {
	if err := m.enter("FetchChatsByIDs", limit); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.Chat
	for _, id := range chatIDs {
		c, ok := m.chats[id]
		if !ok || c.MemberCount < minMembers {
			continue
		}
		if slices.ContainsFunc(out, func(x domain.Chat) bool { return x.ChatID == id }) {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockRepository) FetchChatMembers(ctx context.Context, chatIDs []string, limit int) ([]domain.ChatMember, error) {
	if err := m.enter("FetchChatMembers", limit); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.ChatMember
	for _, cm := range m.members {
		if slices.Contains(chatIDs, cm.ChatID) {
			out = append(out, cm)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MockRepository) FetchUserProfiles(ctx context.Context, userIDs []string) ([]domain.User, error) {
	if err := m.enter("FetchUserProfiles", len(userIDs)); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.User
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// Profile operations

func (m *MockRepository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := m.enter("GetProfile", 0); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, appErrors.NewNotFound("profile not found")
	}
	cp := *p
	return &cp, nil
}

func (m *MockRepository) UpdateGraduationYear(ctx context.Context, userID string, year *int) error {
	if err := m.enter("UpdateGraduationYear", 0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return appErrors.NewNotFound("profile not found")
	}
	p.GraduationYear = year
	return nil
}

func (m *MockRepository) UpdateAvatarURL(ctx context.Context, userID, url string) error {
	if err := m.enter("UpdateAvatarURL", 0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		return appErrors.NewNotFound("profile not found")
	}
	p.AvatarURL = url
	return nil
}

// Notes operations

func (m *MockRepository) GetNotes(ctx context.Context, userID string) (*domain.CareerNotes, error) {
	if err := m.enter("GetNotes", 0); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.notes[userID]
	if !ok {
		return nil, appErrors.NewNotFound("notes not found")
	}
	return &n, nil
}

func (m *MockRepository) UpsertNotes(ctx context.Context, notes domain.CareerNotes) (*domain.CareerNotes, error) {
	if err := m.enter("UpsertNotes", 0); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	notes.UpdatedAt = &now
	m.notes[notes.UserID] = notes
	return &notes, nil
}

// Storage operations

func (m *MockRepository) Upload(ctx context.Context, bucket, path, contentType string, body io.Reader, upsert bool) error {
	if err := m.enter("Upload", 0); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := bucket + "/" + path
	if _, exists := m.objects[key]; exists && !upsert {
		return appErrors.NewValidation("object already exists")
	}
	m.objects[key] = data
	return nil
}

func (m *MockRepository) PublicURL(bucket, path string) string {
	return "https://storage.test/object/public/" + bucket + "/" + path
}

// Auth operations

func (m *MockRepository) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	if err := m.enter("SignIn", 0); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	acct, ok := m.accounts[email]
	if !ok || acct.password != password {
		return nil, appErrors.NewUnauthorized("Invalid login credentials", nil)
	}
	for tok, uid := range m.tokens {
		if uid == acct.userID {
			return &domain.Session{AccessToken: tok, TokenType: "bearer", ExpiresIn: 3600, UserID: uid}, nil
		}
	}
	return nil, appErrors.NewInternal("no token registered", nil)
}

func (m *MockRepository) UserFromToken(ctx context.Context, token string) (string, error) {
	if err := m.enter("UserFromToken", 0); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	uid, ok := m.tokens[token]
	if !ok {
		return "", appErrors.NewUnauthorized("invalid session", nil)
	}
	return uid, nil
}

func (m *MockRepository) UpdatePassword(ctx context.Context, token, password string) error {
	if err := m.enter("UpdatePassword", 0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	uid, ok := m.tokens[token]
	if !ok {
		return appErrors.NewUnauthorized("invalid session", nil)
	}
	for email, acct := range m.accounts {
		if acct.userID == uid {
			acct.password = password
			m.accounts[email] = acct
		}
	}
	return nil
}
