package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"franklink-backend/internal/app"
	"franklink-backend/internal/domain"
	"franklink-backend/internal/service/account"
	"franklink-backend/pkg/api"
)

// multipart overhead allowed on top of the avatar size limit
const multipartSlack = 64 * 1024

// AccountHandler serves login, profile, password and notes requests.
type AccountHandler struct {
	service        account.Service
	sessions       *app.Sessions
	maxAvatarBytes int64
	logger         *zap.Logger
}

// NewAccountHandler creates an AccountHandler. maxAvatarBytes bounds the
// multipart body read for avatar uploads.
func NewAccountHandler(service account.Service, sessions *app.Sessions, maxAvatarBytes int64, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service:        service,
		sessions:       sessions,
		maxAvatarBytes: maxAvatarBytes,
		logger:         logger,
	}
}

func toProfileResponse(p *domain.Profile) api.ProfileResponse {
	return api.ProfileResponse{
		ID:             p.ID,
		Name:           p.Name,
		PhoneNumber:    p.PhoneNumber,
		PhoneDisplay:   domain.FormatPhoneDisplay(p.PhoneNumber),
		University:     p.University,
		AvatarURL:      p.AvatarURL,
		GraduationYear: p.GraduationYear,
		Initials:       p.Initials,
		AvatarColor:    p.AvatarColor,
	}
}

func toNotesResponse(n *domain.CareerNotes) api.NotesResponse {
	resp := api.NotesResponse{Body: n.Body}
	if n.UpdatedAt != nil {
		resp.UpdatedAt = n.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Login handles POST /api/auth/login
//
//	@Summary	Sign in with a phone number or email
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		api.LoginRequest	true	"Credentials"
//	@Success	200		{object}	api.LoginResponse
//	@Failure	400		{object}	api.ErrorResponse
//	@Failure	401		{object}	api.ErrorResponse
//	@Router		/api/auth/login [post]
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		api.Error(w, http.StatusBadRequest, account.MsgCredentialsRequired)
		return
	}

	sess, err := h.service.Login(r.Context(), req.Identity, req.Password)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, api.LoginResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    sess.TokenType,
		ExpiresIn:    sess.ExpiresIn,
		UserID:       sess.UserID,
	})
}

// Logout handles POST /api/auth/logout. It tears down the user's live graph
// layout; the token itself is discarded client-side.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	h.sessions.Logout(id.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// GetProfile handles GET /api/profile
//
//	@Summary	Current user's profile
//	@Tags		profile
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	api.ProfileResponse
//	@Failure	404	{object}	api.ErrorResponse
//	@Router		/api/profile [get]
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	p, err := h.service.GetProfile(r.Context(), id.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.sessions.Get(id.UserID).SetProfile(p)

	api.Success(w, http.StatusOK, toProfileResponse(p))
}

// UpdateGraduationYear handles PUT /api/profile/graduation-year
//
//	@Summary	Set or clear the graduation year
//	@Tags		profile
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		api.GraduationYearRequest	true	"Year, or null to clear"
//	@Success	200		{object}	api.ProfileResponse
//	@Failure	400		{object}	api.ErrorResponse
//	@Router		/api/profile/graduation-year [put]
func (h *AccountHandler) UpdateGraduationYear(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req api.GraduationYearRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	p, err := h.service.UpdateGraduationYear(r.Context(), id.UserID, req.Year)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.sessions.Get(id.UserID).SetProfile(p)

	api.Success(w, http.StatusOK, toProfileResponse(p))
}

// UploadAvatar handles POST /api/profile/avatar
//
//	@Summary	Upload a profile picture
//	@Tags		profile
//	@Accept		mpfd
//	@Produce	json
//	@Security	BearerAuth
//	@Param		file	formData	file	true	"JPEG, PNG or WebP image"
//	@Success	200		{object}	api.AvatarResponse
//	@Failure	400		{object}	api.ErrorResponse
//	@Router		/api/profile/avatar [post]
func (h *AccountHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxAvatarBytes+multipartSlack)
	if err := r.ParseMultipartForm(h.maxAvatarBytes + multipartSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusBadRequest, account.MsgAvatarSize)
			return
		}
		api.Error(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	url, err := h.service.UploadAvatar(r.Context(), id.UserID, account.Avatar{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	api.Success(w, http.StatusOK, api.AvatarResponse{AvatarURL: url})
}

// ChangePassword handles PUT /api/profile/password
//
//	@Summary	Change the password of the current session
//	@Tags		profile
//	@Accept		json
//	@Security	BearerAuth
//	@Param		body	body	api.PasswordChangeRequest	true	"New password"
//	@Success	204
//	@Failure	400	{object}	api.ErrorResponse
//	@Router		/api/profile/password [put]
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	// Password rules are enforced by the service.
	var req api.PasswordChangeRequest
	if err := decodeBody(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), id.UserID, id.Token, req.NewPassword, req.ConfirmPassword); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetNotes handles GET /api/notes
//
//	@Summary	Career notes
//	@Tags		notes
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	api.NotesResponse
//	@Router		/api/notes [get]
func (h *AccountHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	n, err := h.service.GetNotes(r.Context(), id.UserID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, toNotesResponse(n))
}

// SaveNotes handles PUT /api/notes
//
//	@Summary	Replace the career notes
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		api.NotesRequest	true	"Notes"
//	@Success	200		{object}	api.NotesResponse
//	@Router		/api/notes [put]
func (h *AccountHandler) SaveNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req api.NotesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	n, err := h.service.SaveNotes(r.Context(), id.UserID, req.Body)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, toNotesResponse(n))
}
