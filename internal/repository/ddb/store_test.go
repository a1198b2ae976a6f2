package ddb

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	"franklink-backend/internal/service/connections"
	"franklink-backend/pkg/auth"
	appErrors "franklink-backend/pkg/errors"
)

// fakeTable is an in-memory table that understands the narrow set of
// expressions the store builds: a PK equality plus SK prefix, an optional
// Status filter, single-attribute SET/REMOVE updates and attribute_exists.
type fakeTable struct {
	mu        sync.Mutex
	items     map[string]map[string]map[string]types.AttributeValue
	pageSize  int
	queries   int
	unprocess bool
	failWith  error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]map[string]types.AttributeValue), pageSize: 2}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeTable) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.failWith != nil {
		return nil, f.failWith
	}

	// Sort key prefixes end in '#', partition keys never do.
	var pk, prefix, status string
	for _, v := range in.ExpressionAttributeValues {
		s := str(v)
		switch {
		case s == domain.ConnectionStatusGroupCreated:
			status = s
		case strings.HasSuffix(s, "#"):
			prefix = s
		default:
			pk = s
		}
	}

	sks := make([]string, 0)
	for sk := range f.items[pk] {
		if strings.HasPrefix(sk, prefix) {
			sks = append(sks, sk)
		}
	}
	sort.Strings(sks)

	start := 0
	if in.ExclusiveStartKey != nil {
		last := str(in.ExclusiveStartKey["SK"])
		start = sort.SearchStrings(sks, last) + 1
	}
	end := min(start+f.pageSize, len(sks))

	out := &dynamodb.QueryOutput{}
	for _, sk := range sks[start:end] {
		item := f.items[pk][sk]
		if status != "" && str(item["Status"]) != status {
			continue
		}
		out.Items = append(out.Items, item)
	}
	if end < len(sks) {
		out.LastEvaluatedKey = itemKey(pk, sks[end-1])
	}
	return out, nil
}

func (f *fakeTable) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[str(in.Key["PK"])][str(in.Key["SK"])]}, nil
}

func (f *fakeTable) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk, sk := str(in.Item["PK"]), str(in.Item["SK"])
	if f.items[pk] == nil {
		f.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	f.items[pk][sk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.items[str(in.Key["PK"])][str(in.Key["SK"])]
	if item == nil {
		return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
	}
	var attr string
	for _, name := range in.ExpressionAttributeNames {
		if name != "PK" {
			attr = name
		}
	}
	if strings.HasPrefix(strings.TrimSpace(*in.UpdateExpression), "REMOVE") {
		delete(item, attr)
		return &dynamodb.UpdateItemOutput{}, nil
	}
	for _, v := range in.ExpressionAttributeValues {
		item[attr] = v
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeTable) BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{}}
	for table, ka := range in.RequestItems {
		keys := ka.Keys
		if f.unprocess && len(keys) > 1 {
			f.unprocess = false
			out.UnprocessedKeys = map[string]types.KeysAndAttributes{table: {Keys: keys[1:]}}
			keys = keys[:1]
		}
		for _, k := range keys {
			if item := f.items[str(k["PK"])][str(k["SK"])]; item != nil {
				out.Responses[table] = append(out.Responses[table], item)
			}
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func seededStore(t *testing.T) (*Store, *fakeTable) {
	t.Helper()
	table := newFakeTable()
	s := New(table, "franklink", nil)
	year := 2026
	require.NoError(t, s.Seed(context.Background(), &repository.Fixture{
		Users: []repository.FixtureUser{
			{ID: "u1", Name: "Sam Self", GraduationYear: &year},
			{ID: "amy", Name: "Amy Adams"},
			{ID: "ben", PhoneNumber: "+15551234567"},
			{ID: "cara"},
		},
		Requests: []repository.FixtureRequest{
			{Initiator: "u1", Target: "amy"},
			{Initiator: "ben", Target: "u1"},
			{Initiator: "u1", Target: "zed", Status: "pending"},
			{Initiator: "u1", Target: "cara"},
		},
		Chats: []repository.FixtureChat{
			{ID: "g1", DisplayName: "Study Group", Members: []string{"u1", "amy", "cara"}},
			{ID: "pair", Members: []string{"u1", "ben"}},
		},
	}))
	return s, table
}

func TestRelationshipQueries(t *testing.T) {
	s, table := seededStore(t)
	ctx := context.Background()

	t.Run("Should page through requests and filter by status", func(t *testing.T) {
		out, err := s.FetchDirectConnections(ctx, "u1", repository.RoleInitiator, 10)
		require.NoError(t, err)
		targets := []string{}
		for _, r := range out {
			targets = append(targets, r.TargetUserID)
		}
		assert.ElementsMatch(t, []string{"amy", "cara"}, targets)

		in, err := s.FetchDirectConnections(ctx, "u1", repository.RoleTarget, 10)
		require.NoError(t, err)
		require.Len(t, in, 1)
		assert.Equal(t, "ben", in[0].InitiatorUserID)
	})

	t.Run("Should stop at the limit", func(t *testing.T) {
		out, err := s.FetchDirectConnections(ctx, "u1", repository.RoleInitiator, 1)
		require.NoError(t, err)
		assert.Len(t, out, 1)
	})

	t.Run("Should return chats in request order above the threshold", func(t *testing.T) {
		ids, err := s.FetchChatMemberships(ctx, "u1", 100)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"g1", "pair"}, ids)

		chats, err := s.FetchChatsByIDs(ctx, []string{"pair", "g1", "g1"}, repository.GroupMinMembers, 50)
		require.NoError(t, err)
		assert.Equal(t, []domain.Chat{{ChatID: "g1", MemberCount: 3, DisplayName: "Study Group"}}, chats)
	})

	t.Run("Should retry unprocessed batch keys", func(t *testing.T) {
		table.mu.Lock()
		table.unprocess = true
		table.mu.Unlock()

		users, err := s.FetchUserProfiles(ctx, []string{"amy", "ben", "ghost"})
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("Should share the member limit across chats", func(t *testing.T) {
		members, err := s.FetchChatMembers(ctx, []string{"g1", "pair"}, 4)
		require.NoError(t, err)
		assert.Len(t, members, 4)
	})

	t.Run("Should map throttling to unavailable", func(t *testing.T) {
		table.mu.Lock()
		table.failWith = &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}
		table.mu.Unlock()
		defer func() {
			table.mu.Lock()
			table.failWith = nil
			table.mu.Unlock()
		}()

		_, err := s.FetchChatMemberships(ctx, "u1", 10)
		assert.True(t, appErrors.IsUnavailable(err))
	})
}

func TestLoaderOverDynamo(t *testing.T) {
	s, _ := seededStore(t)
	ctx := auth.WithIdentity(context.Background(), &auth.Identity{UserID: "u1"})

	g, err := connections.NewLoader(s, s).Load(ctx)
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Equal(t, domain.Stats{DirectCount: 3, GroupCount: 1}, g.Stats)

	ben, ok := g.Node("ben")
	require.True(t, ok)
	assert.Equal(t, "(555) 123-4567", ben.Label)
}

func TestProfileAndNotes(t *testing.T) {
	s, _ := seededStore(t)
	ctx := context.Background()
	s.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p.GraduationYear)
	assert.Equal(t, 2026, *p.GraduationYear)

	require.NoError(t, s.UpdateGraduationYear(ctx, "u1", nil))
	require.NoError(t, s.UpdateAvatarURL(ctx, "u1", "https://cdn/avatar.png"))
	p, err = s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, p.GraduationYear)
	assert.Equal(t, "https://cdn/avatar.png", p.AvatarURL)

	_, err = s.GetProfile(ctx, "ghost")
	assert.True(t, appErrors.IsNotFound(err))
	assert.True(t, appErrors.IsNotFound(s.UpdateAvatarURL(ctx, "ghost", "x")))

	_, err = s.GetNotes(ctx, "u1")
	assert.True(t, appErrors.IsNotFound(err))
	_, err = s.UpsertNotes(ctx, domain.CareerNotes{UserID: "u1", Body: "apply to internships"})
	require.NoError(t, err)
	n, err := s.GetNotes(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "apply to internships", n.Body)
	require.NotNil(t, n.UpdatedAt)
	assert.Equal(t, 2026, n.UpdatedAt.Year())
}

func TestMapError(t *testing.T) {
	assert.True(t, appErrors.IsNotFound(mapError(&types.ConditionalCheckFailedException{}, "x")))
	assert.True(t, appErrors.IsUnavailable(mapError(&smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException"}, "x")))
	assert.False(t, appErrors.IsUnavailable(mapError(errors.New("plain"), "x")))
}
