// Package api defines the contracts for API requests and responses.
// It decouples the API structure from the internal domain models.
package api

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the expected body for POST /api/auth/login. Identity is an
// email address or a phone number.
type LoginRequest struct {
	Identity string `json:"identity" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the session issued by the auth provider.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int    `json:"expiresIn"`
	UserID       string `json:"userId"`
}

// ProfileResponse is the API representation of the signed-in user.
type ProfileResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	PhoneDisplay   string `json:"phoneDisplay,omitempty"`
	University     string `json:"university,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	GraduationYear *int   `json:"graduationYear"`
	Initials       string `json:"initials"`
	AvatarColor    string `json:"avatarColor"`
}

// GraduationYearRequest is the body for PUT /api/profile/graduation-year.
// A null year clears the stored value.
type GraduationYearRequest struct {
	Year *int `json:"year"`
}

// PasswordChangeRequest is the body for PUT /api/profile/password.
type PasswordChangeRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// AvatarResponse is returned after a successful avatar upload.
type AvatarResponse struct {
	AvatarURL string `json:"avatarUrl"`
}

// NotesRequest is the body for PUT /api/notes.
type NotesRequest struct {
	Body string `json:"body" validate:"max=20000"`
}

// NotesResponse is the API representation of a user's career notes.
type NotesResponse struct {
	Body      string `json:"body"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// GraphNode is a node of the connections graph.
type GraphNode struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	ShortLabel  string  `json:"shortLabel"`
	Radius      float64 `json:"radius"`
	MemberCount int     `json:"memberCount,omitempty"`
	Initials    string  `json:"initials,omitempty"`
}

// GraphLink is an edge of the connections graph.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// GraphStats counts the user's connections.
type GraphStats struct {
	DirectCount int  `json:"directCount"`
	GroupCount  int  `json:"groupCount"`
	Truncated   bool `json:"truncated,omitempty"`
}

// GraphResponse is the structure returned by GET /api/graph.
type GraphResponse struct {
	Nodes    []GraphNode `json:"nodes"`
	Links    []GraphLink `json:"links"`
	Stats    GraphStats  `json:"stats"`
	Empty    bool        `json:"empty"`
	Summary  string      `json:"summary,omitempty"`
	Status   string      `json:"status,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// NodePosition is a node's location in viewport coordinates.
type NodePosition struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// LayoutFrame is one published step of the layout simulation.
type LayoutFrame struct {
	Tick      int            `json:"tick"`
	Alpha     float64        `json:"alpha"`
	Settled   bool           `json:"settled"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Positions []NodePosition `json:"positions"`
}

// LayoutResponse pairs a graph with its settled layout.
type LayoutResponse struct {
	Graph GraphResponse `json:"graph"`
	Frame LayoutFrame   `json:"frame"`
}

// ViewportRequest resizes the active layout.
type ViewportRequest struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

// DragRequest moves a node under the pointer. Phase is start, move or end.
type DragRequest struct {
	Phase  string  `json:"phase" validate:"required,oneof=start move end"`
	NodeID string  `json:"nodeId" validate:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// HighlightResponse lists what to emphasise while hovering a node.
type HighlightResponse struct {
	NodeID  string   `json:"nodeId"`
	Label   string   `json:"label"`
	Tooltip string   `json:"tooltip,omitempty"`
	Nodes   []string `json:"nodes"`
	Links   []int    `json:"links"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// RootResponse describes the service at GET /.
type RootResponse struct {
	Message   string            `json:"message"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// OAuthCallbackResponse is returned by the Google OAuth redirect handler.
type OAuthCallbackResponse struct {
	Success          bool                   `json:"success"`
	Message          string                 `json:"message,omitempty"`
	Error            string                 `json:"error,omitempty"`
	ErrorDescription string                 `json:"error_description,omitempty"`
	State            string                 `json:"state,omitempty"`
	NextSteps        []string               `json:"next_steps,omitempty"`
	Data             map[string]interface{} `json:"data,omitempty"`
}
