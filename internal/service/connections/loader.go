// Package connections assembles the signed-in user's connection graph from
// the relationship tables: direct connections, the group chats they belong
// to, and everyone in those groups.
package connections

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	"franklink-backend/pkg/auth"
	appErrors "franklink-backend/pkg/errors"
)

// Sub-query names used in warnings, logs and metrics.
const (
	QueryProfile      = "profile"
	QueryAsInitiator  = "connections_as_initiator"
	QueryAsTarget     = "connections_as_target"
	QueryMemberships  = "participations"
	QueryGroupChats   = "group_chats"
	QueryGroupMembers = "group_participants"
	QueryUserProfiles = "user_profiles"
	QueryProfileCap   = "profile_batch_cap"
)

// Recorder receives load outcomes. observability.Collector implements it.
type Recorder interface {
	GraphLoaded(outcome string, nodes, edges int, elapsed time.Duration)
	PartialFailure(query string)
}

type nopRecorder struct{}

func (nopRecorder) GraphLoaded(string, int, int, time.Duration) {}
func (nopRecorder) PartialFailure(string)                       {}

// Loader builds a fresh graph on every call.
type Loader interface {
	Load(ctx context.Context) (*domain.Graph, error)
}

type loader struct {
	reader   repository.RelationshipReader
	profiles repository.ProfileStore
	limits   func() repository.Limits
	logger   *zap.Logger
	recorder Recorder
	tracer   trace.Tracer
}

// Option customizes a Loader.
type Option func(*loader)

// WithLimits sets the source of query limits. It is called once per load so
// configuration reloads take effect on the next graph.
func WithLimits(fn func() repository.Limits) Option {
	return func(l *loader) { l.limits = fn }
}

// WithLogger sets the logger used for partial failure warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(l *loader) { l.logger = logger }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(l *loader) { l.recorder = r }
}

// NewLoader creates a Loader over the given relationship and profile stores.
func NewLoader(reader repository.RelationshipReader, profiles repository.ProfileStore, opts ...Option) Loader {
	l := &loader{
		reader:   reader,
		profiles: profiles,
		limits:   repository.DefaultLimits,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer("franklink-backend/connections"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// partials collects sub-query failures from concurrent fetches.
type partials struct {
	mu       sync.Mutex
	failures []domain.PartialFetchFailure
	logger   *zap.Logger
	recorder Recorder
}

func (p *partials) add(query string, err error) {
	p.logger.Warn("graph sub-query failed, continuing with empty result",
		zap.String("query", query),
		zap.Error(err))
	p.recorder.PartialFailure(query)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, domain.PartialFetchFailure{Query: query, Err: err})
}

// orderedSet keeps first-seen order so node and edge order is deterministic.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.items = append(s.items, id)
	return true
}

func (s *orderedSet) has(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Load resolves the signed-in user and builds their graph. Only a missing
// identity is fatal; every other failure degrades to an empty sub-result and
// a warning on the returned graph.
func (l *loader) Load(ctx context.Context) (*domain.Graph, error) {
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "connections.Load")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		span.SetStatus(codes.Error, "not authenticated")
		l.recorder.GraphLoaded("unauthenticated", 0, 0, time.Since(start))
		return nil, domain.ErrNotAuthenticated
	}
	selfID := identity.UserID
	span.SetAttributes(attribute.String("user.id", selfID))

	limits := l.limits().WithDefaults()
	p := &partials{logger: l.logger.With(zap.String("user_id", selfID)), recorder: l.recorder}

	var (
		profile     *domain.Profile
		asInitiator []domain.ConnectionRequest
		asTarget    []domain.ConnectionRequest
		chatIDs     []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pr, err := l.profiles.GetProfile(gctx, selfID)
		if err != nil {
			if !appErrors.IsNotFound(err) {
				p.add(QueryProfile, err)
			}
			return nil
		}
		profile = pr
		return nil
	})
	g.Go(func() error {
		rows, err := l.reader.FetchDirectConnections(gctx, selfID, repository.RoleInitiator, limits.RequestRows)
		if err != nil {
			p.add(QueryAsInitiator, err)
			return nil
		}
		asInitiator = rows
		return nil
	})
	g.Go(func() error {
		rows, err := l.reader.FetchDirectConnections(gctx, selfID, repository.RoleTarget, limits.RequestRows)
		if err != nil {
			p.add(QueryAsTarget, err)
			return nil
		}
		asTarget = rows
		return nil
	})
	g.Go(func() error {
		ids, err := l.reader.FetchChatMemberships(gctx, selfID, limits.Participations)
		if err != nil {
			p.add(QueryMemberships, err)
			return nil
		}
		chatIDs = ids
		return nil
	})
	// Every fetch swallows its own error, so Wait only reports cancellation.
	_ = g.Wait()

	direct := newOrderedSet()
	for _, r := range append(asInitiator, asTarget...) {
		direct.add(r.Other(selfID))
	}

	chats, members := l.loadGroups(ctx, selfID, chatIDs, limits, p)

	everyone := newOrderedSet()
	for _, id := range direct.items {
		everyone.add(id)
	}
	for _, c := range chats {
		for _, id := range members[c.ChatID] {
			if id != selfID {
				everyone.add(id)
			}
		}
	}

	truncated := false
	lookup := everyone.items
	if len(lookup) > limits.ProfileBatchCap {
		truncated = true
		p.add(QueryProfileCap, appErrors.NewValidation("profile lookups truncated to batch cap"))
		lookup = lookup[:limits.ProfileBatchCap]
	}

	users := make(map[string]domain.User, len(lookup))
	if len(lookup) > 0 {
		rows, err := l.reader.FetchUserProfiles(ctx, lookup)
		if err != nil {
			p.add(QueryUserProfiles, err)
		}
		for _, u := range rows {
			users[u.ID] = u
		}
	}

	graph := build(selfID, profile, direct, chats, members, users)
	graph.Stats.Truncated = truncated
	graph.Warnings = p.failures

	span.SetAttributes(
		attribute.Int("graph.nodes", len(graph.Nodes)),
		attribute.Int("graph.edges", len(graph.Edges)),
		attribute.Int("graph.warnings", len(graph.Warnings)),
	)
	outcome := "ok"
	if len(graph.Warnings) > 0 {
		outcome = "partial"
	}
	l.recorder.GraphLoaded(outcome, len(graph.Nodes), len(graph.Edges), time.Since(start))
	l.logger.Debug("graph loaded",
		zap.String("user_id", selfID),
		zap.Int("direct", graph.Stats.DirectCount),
		zap.Int("groups", graph.Stats.GroupCount),
		zap.Int("warnings", len(graph.Warnings)),
		zap.Duration("elapsed", time.Since(start)))
	return graph, nil
}

// loadGroups resolves which of the user's chats are groups and who is in
// them. Member ids are deduplicated per chat.
func (l *loader) loadGroups(ctx context.Context, selfID string, chatIDs []string, limits repository.Limits, p *partials) ([]domain.Chat, map[string][]string) {
	ids := newOrderedSet()
	for _, id := range chatIDs {
		ids.add(id)
	}
	if len(ids.items) == 0 {
		return nil, nil
	}

	rows, err := l.reader.FetchChatsByIDs(ctx, ids.items, repository.GroupMinMembers, limits.GroupChats)
	if err != nil {
		p.add(QueryGroupChats, err)
		return nil, nil
	}

	seen := newOrderedSet()
	chats := make([]domain.Chat, 0, len(rows))
	for _, c := range rows {
		if !c.IsGroup() || !ids.has(c.ChatID) || !seen.add(c.ChatID) {
			continue
		}
		chats = append(chats, c)
	}
	if len(chats) == 0 {
		return nil, nil
	}

	memberRows, err := l.reader.FetchChatMembers(ctx, seen.items, limits.ParticipantRows)
	if err != nil {
		p.add(QueryGroupMembers, err)
		memberRows = nil
	}

	perChat := make(map[string]*orderedSet, len(chats))
	for _, id := range seen.items {
		perChat[id] = newOrderedSet()
	}
	for _, m := range memberRows {
		if set, ok := perChat[m.ChatID]; ok {
			set.add(m.UserID)
		}
	}

	members := make(map[string][]string, len(perChat))
	for id, set := range perChat {
		members[id] = set.items
	}
	return chats, members
}

// build assembles nodes and edges. It performs no I/O.
func build(selfID string, profile *domain.Profile, direct *orderedSet, chats []domain.Chat, members map[string][]string, users map[string]domain.User) *domain.Graph {
	label := func(id string) string {
		if u, ok := users[id]; ok {
			return u.Label()
		}
		return "Unknown"
	}
	nodeID := func(id string) string {
		if id == selfID {
			return domain.SelfNodeID
		}
		return id
	}

	graph := &domain.Graph{
		Nodes: []domain.GraphNode{domain.NewSelfNode(profile.SelfLabel())},
		Edges: []domain.GraphEdge{},
	}
	added := newOrderedSet()
	added.add(domain.SelfNodeID)

	for _, id := range direct.items {
		if added.add(id) {
			graph.Nodes = append(graph.Nodes, domain.NewUserNode(id, label(id)))
		}
	}
	for _, c := range chats {
		for _, id := range members[c.ChatID] {
			if id != selfID && added.add(id) {
				graph.Nodes = append(graph.Nodes, domain.NewUserNode(id, label(id)))
			}
		}
	}

	for _, c := range chats {
		ids := members[c.ChatID]
		name := c.DisplayName
		if name == "" {
			others := make([]string, 0, len(ids))
			for _, id := range ids {
				if id != selfID {
					others = append(others, label(id))
				}
			}
			name = domain.GroupName(others)
		}
		graph.Nodes = append(graph.Nodes, domain.NewGroupNode(c.ChatID, name, len(ids)))
	}

	for _, id := range direct.items {
		graph.Edges = append(graph.Edges, domain.GraphEdge{
			Source: domain.SelfNodeID,
			Target: id,
			Kind:   domain.EdgeKindDirect,
		})
	}
	for _, c := range chats {
		target := domain.GroupNodeID(c.ChatID)
		for _, id := range members[c.ChatID] {
			graph.Edges = append(graph.Edges, domain.GraphEdge{
				Source: nodeID(id),
				Target: target,
				Kind:   domain.EdgeKindGroup,
			})
		}
	}

	graph.Stats = domain.Stats{
		DirectCount: len(direct.items),
		GroupCount:  len(chats),
	}
	return graph
}
