package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"franklink-backend/internal/app"
	"franklink-backend/internal/domain"
	"franklink-backend/internal/layout"
	"franklink-backend/internal/service/connections"
	"franklink-backend/pkg/api"
)

// Status messages shown above the graph.
const (
	StatusNotSignedIn   = "Not signed in."
	StatusNoConnections = "No connections found yet."
)

// frames buffered per stream; a slow client misses intermediate frames
const streamBuffer = 64

// GraphHandler serves the connection graph and its live layout.
type GraphHandler struct {
	loader   connections.Loader
	sessions *app.Sessions
	logger   *zap.Logger
}

// NewGraphHandler creates a GraphHandler.
func NewGraphHandler(loader connections.Loader, sessions *app.Sessions, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{loader: loader, sessions: sessions, logger: logger}
}

func toGraphResponse(g *domain.Graph) api.GraphResponse {
	resp := api.GraphResponse{
		Nodes: make([]api.GraphNode, 0, len(g.Nodes)),
		Links: make([]api.GraphLink, 0, len(g.Edges)),
		Stats: api.GraphStats{
			DirectCount: g.Stats.DirectCount,
			GroupCount:  g.Stats.GroupCount,
			Truncated:   g.Stats.Truncated,
		},
		Empty: g.IsEmpty(),
	}
	for _, n := range g.Nodes {
		node := api.GraphNode{
			ID:          n.ID,
			Type:        string(n.Kind),
			Label:       n.Label,
			ShortLabel:  n.ShortLabel,
			Radius:      n.Radius,
			MemberCount: n.MemberCount,
		}
		if n.Kind != domain.NodeKindGroup {
			node.Initials = domain.Initials(n.Label)
		}
		resp.Nodes = append(resp.Nodes, node)
	}
	for _, e := range g.Edges {
		resp.Links = append(resp.Links, api.GraphLink{Source: e.Source, Target: e.Target, Type: string(e.Kind)})
	}
	for _, w := range g.Warnings {
		resp.Warnings = append(resp.Warnings, "Some connections could not be loaded ("+w.Query+")")
	}

	if count := g.Stats.DirectCount + g.Stats.GroupCount; count > 0 {
		resp.Summary = fmt.Sprintf("%d connections loaded.", count)
	} else {
		resp.Summary = StatusNoConnections
	}
	return resp
}

func toLayoutFrame(f layout.Frame) api.LayoutFrame {
	vp := f.Viewport.OrDefault()
	out := api.LayoutFrame{
		Tick:      f.Tick,
		Alpha:     f.Alpha,
		Settled:   f.Settled,
		Width:     vp.Width,
		Height:    vp.Height,
		Positions: make([]api.NodePosition, len(f.Positions)),
	}
	for i, p := range f.Positions {
		out.Positions[i] = api.NodePosition{ID: p.ID, X: p.X, Y: p.Y}
	}
	return out
}

// parseViewport reads width and height query parameters. Missing or
// unparsable values fall back to the default viewport.
func parseViewport(r *http.Request) layout.Viewport {
	q := r.URL.Query()
	w, _ := strconv.ParseFloat(q.Get("width"), 64)
	h, _ := strconv.ParseFloat(q.Get("height"), 64)
	return layout.Viewport{Width: w, Height: h}.OrDefault()
}

// notSignedIn answers a graph request without a user the way the page
// shows it: the lone self node and a status line.
func notSignedIn(w http.ResponseWriter) {
	resp := toGraphResponse(domain.SelfOnlyGraph())
	resp.Empty = false
	resp.Summary = ""
	resp.Status = StatusNotSignedIn
	api.Success(w, http.StatusUnauthorized, resp)
}

func (h *GraphHandler) handleLayoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		notSignedIn(w)
	case errors.Is(err, app.ErrNoGraph):
		api.Error(w, http.StatusConflict, "No graph has been rendered yet")
	case errors.Is(err, app.ErrLoggedOut):
		api.Error(w, http.StatusConflict, "The session was signed out")
	case errors.Is(err, layout.ErrNotDraggable):
		api.Error(w, http.StatusBadRequest, "The center node cannot be moved")
	case errors.Is(err, layout.ErrUnknownNode):
		api.Error(w, http.StatusNotFound, "Unknown node")
	case errors.Is(err, layout.ErrDestroyed):
		api.Error(w, http.StatusConflict, "The layout was replaced")
	default:
		handleServiceError(w, r, h.logger, err)
	}
}

// GetGraph handles GET /api/graph
//
//	@Summary	The signed-in user's connection graph
//	@Tags		graph
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	api.GraphResponse
//	@Failure	401	{object}	api.GraphResponse
//	@Router		/api/graph [get]
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := h.loader.Load(r.Context())
	if err != nil {
		h.handleLayoutError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, toGraphResponse(g))
}

// GetLayout handles GET /api/graph/layout
//
//	@Summary	Load the graph and lay it out until it settles
//	@Tags		graph
//	@Produce	json
//	@Security	BearerAuth
//	@Param		width	query		number	false	"Viewport width"
//	@Param		height	query		number	false	"Viewport height"
//	@Success	200		{object}	api.LayoutResponse
//	@Router		/api/graph/layout [get]
func (h *GraphHandler) GetLayout(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		notSignedIn(w)
		return
	}

	ctrl := h.sessions.Get(id.UserID)
	handle, err := ctrl.RenderGraph(r.Context(), parseViewport(r))
	if err != nil {
		h.handleLayoutError(w, r, err)
		return
	}

	frame, err := handle.Wait(r.Context())
	if err != nil {
		h.handleLayoutError(w, r, err)
		return
	}

	api.Success(w, http.StatusOK, api.LayoutResponse{
		Graph: toGraphResponse(handle.Graph()),
		Frame: toLayoutFrame(frame),
	})
}

// StreamLayout handles GET /api/graph/layout/stream. It sends the current
// frame, then every new frame as a server-sent event until the run settles,
// the layout is replaced or the client goes away. A graph is rendered first
// when the user has none.
func (h *GraphHandler) StreamLayout(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		notSignedIn(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	ctrl := h.sessions.Get(id.UserID)

	frames := make(chan layout.Frame, streamBuffer)
	reg := ctrl.Events().Register(layout.EventFrame, func(payload interface{}) {
		f, ok := payload.(layout.Frame)
		if !ok {
			return
		}
		select {
		case frames <- f:
		default:
		}
	})
	defer ctrl.Events().Remove(reg)

	settled := make(chan layout.Frame, 1)
	settledReg := ctrl.Events().Register(layout.EventSettled, func(payload interface{}) {
		f, ok := payload.(layout.Frame)
		if !ok {
			return
		}
		select {
		case settled <- f:
		default:
		}
	})
	defer ctrl.Events().Remove(settledReg)

	handle, err := ctrl.Handle()
	if errors.Is(err, app.ErrNoGraph) || r.URL.Query().Get("render") == "true" {
		handle, err = ctrl.RenderGraph(r.Context(), parseViewport(r))
	}
	if err != nil {
		h.handleLayoutError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	send := func(event string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := send("graph", toGraphResponse(handle.Graph())); err != nil {
		return
	}
	current := handle.Snapshot()
	if len(current.Positions) > 0 {
		if err := send(layout.EventFrame, toLayoutFrame(current)); err != nil {
			return
		}
	}
	if current.Settled {
		_ = send(layout.EventSettled, toLayoutFrame(current))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-handle.Done():
			_ = send("replaced", map[string]uint64{"handle": handle.ID()})
			return
		case f := <-settled:
			_ = send(layout.EventSettled, toLayoutFrame(f))
			return
		case f := <-frames:
			if err := send(layout.EventFrame, toLayoutFrame(f)); err != nil {
				h.logger.Debug("layout stream closed", zap.Error(err))
				return
			}
		}
	}
}

// Resize handles POST /api/graph/layout/viewport
//
//	@Summary	Re-centre the live layout on a new viewport
//	@Tags		graph
//	@Accept		json
//	@Security	BearerAuth
//	@Param		body	body	api.ViewportRequest	true	"Viewport"
//	@Success	202
//	@Router		/api/graph/layout/viewport [post]
func (h *GraphHandler) Resize(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req api.ViewportRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	if err := h.sessions.Get(id.UserID).Resize(layout.Viewport{Width: req.Width, Height: req.Height}); err != nil {
		h.handleLayoutError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Drag handles POST /api/graph/layout/drag
//
//	@Summary	Move a node under the pointer
//	@Tags		graph
//	@Accept		json
//	@Security	BearerAuth
//	@Param		body	body	api.DragRequest	true	"Drag gesture"
//	@Success	202
//	@Failure	400	{object}	api.ErrorResponse
//	@Router		/api/graph/layout/drag [post]
func (h *GraphHandler) Drag(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req api.DragRequest
	if err := decodeAndValidate(r, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	if err := h.sessions.Get(id.UserID).Drag(req.Phase, req.NodeID, req.X, req.Y); err != nil {
		h.handleLayoutError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Highlight handles GET /api/graph/highlight
//
//	@Summary	Nodes and links to emphasise while hovering a node
//	@Tags		graph
//	@Produce	json
//	@Security	BearerAuth
//	@Param		node	query		string	true	"Node id"
//	@Success	200		{object}	api.HighlightResponse
//	@Router		/api/graph/highlight [get]
func (h *GraphHandler) Highlight(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	node := r.URL.Query().Get("node")
	if node == "" {
		api.Error(w, http.StatusBadRequest, "node is required")
		return
	}

	hl, err := h.sessions.Get(id.UserID).Highlight(node)
	if err != nil {
		h.handleLayoutError(w, r, err)
		return
	}
	api.Success(w, http.StatusOK, api.HighlightResponse{
		NodeID:  hl.NodeID,
		Label:   hl.Label,
		Tooltip: hl.Tooltip,
		Nodes:   hl.Nodes,
		Links:   hl.Edges,
	})
}

// SVG handles GET /api/graph.svg. It draws the live layout, rendering and
// settling a new one first when the user has none.
func (h *GraphHandler) SVG(w http.ResponseWriter, r *http.Request) {
	id, ok := getIdentity(r)
	if !ok {
		api.Error(w, http.StatusUnauthorized, StatusNotSignedIn)
		return
	}

	ctrl := h.sessions.Get(id.UserID)
	handle, err := ctrl.Handle()
	if errors.Is(err, app.ErrNoGraph) {
		handle, err = ctrl.RenderGraph(r.Context(), parseViewport(r))
		if err == nil {
			_, err = handle.Wait(r.Context())
		}
	}
	if err != nil {
		h.handleLayoutError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	if err := layout.RenderSVG(w, handle.Graph(), handle.Snapshot()); err != nil {
		h.logger.Warn("failed to write svg", zap.Error(err))
	}
}
