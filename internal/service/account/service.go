// Package account provides the signed-in user's account operations: sign in,
// profile reads and edits, avatar upload, password change and career notes.
package account

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/infrastructure/messaging"
	"franklink-backend/internal/repository"
	appErrors "franklink-backend/pkg/errors"
)

// Validation messages shown to the user as is.
const (
	MsgCredentialsRequired = "Phone/email and password are required."
	MsgInvalidCredentials  = "Invalid credentials. Make sure you're using the phone number or email linked to your Frank account."
	MsgNotOnboarded        = "Profile not found. Your account may not be fully set up yet."
	MsgAvatarType          = "Please choose a JPG, PNG, or WebP image."
	MsgAvatarSize          = "Image must be under 5MB. Please choose a smaller file."
	MsgPasswordLength      = "Password must be at least 8 characters."
	MsgPasswordMismatch    = "Passwords do not match."
)

const (
	minPasswordLength = 8
	gradYearSpan      = 6
)

var avatarExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Config holds the account settings.
type Config struct {
	PhoneEmailDomain string
	AvatarBucket     string
	MaxAvatarBytes   int64
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		PhoneEmailDomain: "users.franklink.ai",
		AvatarBucket:     "agent-avatars",
		MaxAvatarBytes:   5 * 1024 * 1024,
	}
}

// Recorder counts account operations. observability.Collector implements it.
type Recorder interface {
	AccountOperation(op string, err error)
}

type nopRecorder struct{}

func (nopRecorder) AccountOperation(string, error) {}

// Avatar is an uploaded image.
type Avatar struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Service defines the account operations.
type Service interface {
	// Login maps a phone number or email to the sign-in email and signs in.
	Login(ctx context.Context, identity, password string) (*domain.Session, error)

	// GetProfile returns the user's row with its derived avatar fields.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// UpdateGraduationYear sets or, with nil, clears the graduation year.
	UpdateGraduationYear(ctx context.Context, userID string, year *int) (*domain.Profile, error)

	// UploadAvatar stores a new profile picture and returns its public URL.
	UploadAvatar(ctx context.Context, userID string, avatar Avatar) (string, error)

	// ChangePassword updates the password of the session identified by token.
	ChangePassword(ctx context.Context, userID, token, newPassword, confirmPassword string) error

	// GetNotes returns the user's notes; an empty notebook when none exist yet.
	GetNotes(ctx context.Context, userID string) (*domain.CareerNotes, error)

	// SaveNotes replaces the user's notes.
	SaveNotes(ctx context.Context, userID, body string) (*domain.CareerNotes, error)
}

type service struct {
	profiles  repository.ProfileStore
	notes     repository.NotesStore
	storage   repository.AvatarStorage
	auth      repository.Authenticator
	publisher messaging.Publisher
	cfg       func() Config
	logger    *zap.Logger
	recorder  Recorder
	now       func() time.Time
}

// Option customizes the service.
type Option func(*service)

// WithConfig sets the settings source; it is read on every call.
func WithConfig(fn func() Config) Option {
	return func(s *service) { s.cfg = fn }
}

// WithAuthenticator sets the identity provider. Without one Login and
// ChangePassword report the service as unavailable.
func WithAuthenticator(a repository.Authenticator) Option {
	return func(s *service) { s.auth = a }
}

// WithAvatarStorage sets the object storage. Without one UploadAvatar
// reports the service as unavailable.
func WithAvatarStorage(st repository.AvatarStorage) Option {
	return func(s *service) { s.storage = st }
}

// WithPublisher sets where account events go.
func WithPublisher(p messaging.Publisher) Option {
	return func(s *service) { s.publisher = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *service) { s.logger = l }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *service) { s.recorder = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates the account service.
func NewService(profiles repository.ProfileStore, notes repository.NotesStore, opts ...Option) Service {
	s := &service{
		profiles: profiles,
		notes:    notes,
		cfg:      DefaultConfig,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = messaging.NewLogPublisher(s.logger)
	}
	return s
}

func (s *service) publish(ctx context.Context, eventType, userID string, detail map[string]interface{}) {
	if err := s.publisher.Publish(ctx, messaging.NewEvent(eventType, userID, detail)); err != nil {
		s.logger.Warn("failed to publish account event",
			zap.String("event_type", eventType),
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (s *service) Login(ctx context.Context, identity, password string) (sess *domain.Session, err error) {
	defer func() { s.recorder.AccountOperation("login", err) }()

	email := domain.UsernameToEmail(identity, s.cfg().PhoneEmailDomain)
	if email == "" || password == "" {
		return nil, appErrors.NewValidation(MsgCredentialsRequired)
	}
	if s.auth == nil {
		return nil, appErrors.NewUnavailable("sign in is not configured", nil)
	}

	sess, err = s.auth.SignIn(ctx, email, password)
	if err != nil {
		if appErrors.IsUnauthorized(err) {
			return nil, appErrors.NewUnauthorized(MsgInvalidCredentials, err)
		}
		return nil, appErrors.Wrap(err, "sign in failed")
	}
	s.publish(ctx, messaging.EventSignedIn, sess.UserID, nil)
	return sess, nil
}

func (s *service) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if userID == "" {
		return nil, appErrors.NewUnauthorized("not signed in", domain.ErrNotAuthenticated)
	}
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.NewNotFound(MsgNotOnboarded)
		}
		return nil, appErrors.Wrap(err, "failed to load profile")
	}
	return p.Decorate(), nil
}

// GraduationYears lists the selectable years, current year first.
func GraduationYears(now time.Time) []int {
	first := now.Year()
	years := make([]int, 0, gradYearSpan+1)
	for y := first; y <= first+gradYearSpan; y++ {
		years = append(years, y)
	}
	return years
}

func (s *service) UpdateGraduationYear(ctx context.Context, userID string, year *int) (p *domain.Profile, err error) {
	defer func() { s.recorder.AccountOperation("graduation_year", err) }()

	if year != nil {
		first := s.now().Year()
		if *year < first || *year > first+gradYearSpan {
			return nil, appErrors.NewValidation(fmt.Sprintf("graduation year must be between %d and %d", first, first+gradYearSpan))
		}
	}
	if err = s.profiles.UpdateGraduationYear(ctx, userID, year); err != nil {
		if appErrors.IsNotFound(err) {
			return nil, appErrors.NewNotFound(MsgNotOnboarded)
		}
		return nil, appErrors.Wrap(err, "failed to save graduation year")
	}

	detail := map[string]interface{}{"graduation_year": nil}
	if year != nil {
		detail["graduation_year"] = *year
	}
	s.publish(ctx, messaging.EventGraduationYearUpdated, userID, detail)
	return s.GetProfile(ctx, userID)
}

// avatarExtension picks the stored file extension: the upload's own
// extension when it is an accepted image type, else one derived from the
// content type.
func avatarExtension(filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	switch ext {
	case "jpg", "jpeg", "png", "webp":
		return ext
	}
	return avatarExtensions[contentType]
}

func (s *service) UploadAvatar(ctx context.Context, userID string, avatar Avatar) (url string, err error) {
	defer func() { s.recorder.AccountOperation("avatar_upload", err) }()

	cfg := s.cfg()
	contentType := strings.ToLower(strings.TrimSpace(avatar.ContentType))
	if _, ok := avatarExtensions[contentType]; !ok {
		return "", appErrors.NewValidation(MsgAvatarType)
	}
	if avatar.Size > cfg.MaxAvatarBytes {
		return "", appErrors.NewValidation(MsgAvatarSize)
	}
	if s.storage == nil {
		return "", appErrors.NewUnavailable("avatar storage is not configured", nil)
	}

	// The declared size may lie; never buffer more than the limit allows.
	data, err := io.ReadAll(io.LimitReader(avatar.Body, cfg.MaxAvatarBytes+1))
	if err != nil {
		return "", appErrors.NewValidation("failed to read upload")
	}
	if int64(len(data)) > cfg.MaxAvatarBytes {
		return "", appErrors.NewValidation(MsgAvatarSize)
	}

	objectPath := userID + "/avatar." + avatarExtension(avatar.Filename, contentType)
	if err = s.storage.Upload(ctx, cfg.AvatarBucket, objectPath, contentType, bytes.NewReader(data), true); err != nil {
		return "", appErrors.Wrap(err, "Upload failed")
	}

	url = s.storage.PublicURL(cfg.AvatarBucket, objectPath) + "?t=" + strconv.FormatInt(s.now().UnixMilli(), 10)
	if err = s.profiles.UpdateAvatarURL(ctx, userID, url); err != nil {
		return "", appErrors.Wrap(err, "Failed to save")
	}

	s.publish(ctx, messaging.EventAvatarUploaded, userID, map[string]interface{}{
		"path":  objectPath,
		"bytes": len(data),
	})
	return url, nil
}

func (s *service) ChangePassword(ctx context.Context, userID, token, newPassword, confirmPassword string) (err error) {
	defer func() { s.recorder.AccountOperation("password_change", err) }()

	if len([]rune(newPassword)) < minPasswordLength {
		return appErrors.NewValidation(MsgPasswordLength)
	}
	if newPassword != confirmPassword {
		return appErrors.NewValidation(MsgPasswordMismatch)
	}
	if s.auth == nil {
		return appErrors.NewUnavailable("password change is not configured", nil)
	}
	if err = s.auth.UpdatePassword(ctx, token, newPassword); err != nil {
		return appErrors.Wrap(err, "Failed to update password")
	}
	s.publish(ctx, messaging.EventPasswordChanged, userID, nil)
	return nil
}

func (s *service) GetNotes(ctx context.Context, userID string) (*domain.CareerNotes, error) {
	n, err := s.notes.GetNotes(ctx, userID)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return &domain.CareerNotes{UserID: userID}, nil
		}
		return nil, appErrors.Wrap(err, "failed to load notes")
	}
	return n, nil
}

func (s *service) SaveNotes(ctx context.Context, userID, body string) (n *domain.CareerNotes, err error) {
	defer func() { s.recorder.AccountOperation("notes_save", err) }()

	n, err = s.notes.UpsertNotes(ctx, domain.CareerNotes{UserID: userID, Body: body})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to save notes")
	}
	s.publish(ctx, messaging.EventNotesSaved, userID, map[string]interface{}{"length": len(body)})
	return n, nil
}
