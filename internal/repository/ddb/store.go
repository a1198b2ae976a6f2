// Package ddb implements the repository contracts on a single DynamoDB table.
// This is the only layer that knows the key layout:
//
//	PK                SK                      item
//	USER#<id>         PROFILE                 users row
//	USER#<id>         NOTES                   career_notes row
//	USER#<id>         REQ#OUT#<target>        request initiated by <id>
//	USER#<id>         REQ#IN#<initiator>      request targeting <id>
//	USER#<id>         CHAT#<chat>             participation of <id>
//	CHAT#<chat>       META                    group_chats row
//	CHAT#<chat>       MEMBER#<id>             participant row
package ddb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	appErrors "franklink-backend/pkg/errors"
)

// batchGetMax is the DynamoDB BatchGetItem key limit.
const batchGetMax = 100

// API is the subset of the DynamoDB client the store uses.
type API interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

type ddbProfile struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	UserID         string `dynamodbav:"UserID"`
	Name           string `dynamodbav:"Name,omitempty"`
	PhoneNumber    string `dynamodbav:"PhoneNumber,omitempty"`
	University     string `dynamodbav:"University,omitempty"`
	AvatarURL      string `dynamodbav:"AvatarURL,omitempty"`
	GraduationYear *int   `dynamodbav:"GraduationYear,omitempty"`
}

type ddbRequest struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Initiator string `dynamodbav:"Initiator"`
	Target    string `dynamodbav:"Target"`
	Status    string `dynamodbav:"Status"`
}

type ddbChat struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	ChatID      string `dynamodbav:"ChatID"`
	MemberCount int    `dynamodbav:"MemberCount"`
	DisplayName string `dynamodbav:"DisplayName,omitempty"`
}

type ddbMember struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	ChatID string `dynamodbav:"ChatID"`
	UserID string `dynamodbav:"UserID"`
}

type ddbNotes struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	UserID    string `dynamodbav:"UserID"`
	Body      string `dynamodbav:"Body"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

func userPK(id string) string { return "USER#" + id }
func chatPK(id string) string { return "CHAT#" + id }

const (
	skProfile = "PROFILE"
	skNotes   = "NOTES"
	skMeta    = "META"
)

// Store is the DynamoDB repository.Store.
type Store struct {
	client API
	table  string
	logger *zap.Logger
	now    func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New creates a store over table.
func New(client API, table string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, table: table, logger: logger, now: time.Now}
}

// mapError converts SDK errors into application errors.
func mapError(err error, message string) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return appErrors.NewNotFound(message + ": item not found")
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded", "InternalServerError":
			return appErrors.NewUnavailable(message, err)
		}
	}
	return appErrors.Wrap(err, message)
}

// queryPrefix reads items under pk whose sort key starts with prefix until
// limit matching items are collected. filter may be nil.
func (s *Store) queryPrefix(ctx context.Context, pk, prefix string, filter *expression.ConditionBuilder, limit int, each func(map[string]types.AttributeValue) bool) error {
	keyCond := expression.Key("PK").Equal(expression.Value(pk)).
		And(expression.KeyBeginsWith(expression.Key("SK"), prefix))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter != nil {
		builder = builder.WithFilter(*filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return appErrors.Wrap(err, "failed to build query expression")
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	taken := 0
	for paginator.HasMorePages() && taken < limit {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return mapError(err, "query "+pk)
		}
		for _, item := range page.Items {
			if each(item) {
				taken++
				if taken == limit {
					return nil
				}
			}
		}
	}
	return nil
}

func (s *Store) FetchDirectConnections(ctx context.Context, selfID string, role repository.Role, limit int) ([]domain.ConnectionRequest, error) {
	prefix := "REQ#OUT#"
	if role == repository.RoleTarget {
		prefix = "REQ#IN#"
	}
	filter := expression.Name("Status").Equal(expression.Value(domain.ConnectionStatusGroupCreated))

	var out []domain.ConnectionRequest
	err := s.queryPrefix(ctx, userPK(selfID), prefix, &filter, limit, func(item map[string]types.AttributeValue) bool {
		var r ddbRequest
		if err := attributevalue.UnmarshalMap(item, &r); err != nil {
			return false
		}
		if r.Initiator == "" || r.Target == "" || r.Status != domain.ConnectionStatusGroupCreated {
			return false
		}
		out = append(out, domain.ConnectionRequest{InitiatorUserID: r.Initiator, TargetUserID: r.Target, Status: r.Status})
		return true
	})
	return out, err
}

func (s *Store) FetchChatMemberships(ctx context.Context, selfID string, limit int) ([]string, error) {
	var out []string
	err := s.queryPrefix(ctx, userPK(selfID), "CHAT#", nil, limit, func(item map[string]types.AttributeValue) bool {
		var m ddbMember
		if err := attributevalue.UnmarshalMap(item, &m); err != nil || m.ChatID == "" {
			return false
		}
		out = append(out, m.ChatID)
		return true
	})
	return out, err
}

func (s *Store) FetchChatsByIDs(ctx context.Context, chatIDs []string, minMembers, limit int) ([]domain.Chat, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(chatIDs))
	for _, id := range dedupe(chatIDs) {
		keys = append(keys, itemKey(chatPK(id), skMeta))
	}
	items, err := s.batchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Chat, len(items))
	for _, item := range items {
		var c ddbChat
		if err := attributevalue.UnmarshalMap(item, &c); err != nil || c.ChatID == "" {
			continue
		}
		byID[c.ChatID] = domain.Chat{ChatID: c.ChatID, MemberCount: c.MemberCount, DisplayName: c.DisplayName}
	}

	// BatchGetItem returns items in no particular order.
	var out []domain.Chat
	for _, id := range dedupe(chatIDs) {
		c, ok := byID[id]
		if !ok || c.MemberCount < minMembers {
			continue
		}
		out = append(out, c)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) FetchChatMembers(ctx context.Context, chatIDs []string, limit int) ([]domain.ChatMember, error) {
	var out []domain.ChatMember
	for _, id := range dedupe(chatIDs) {
		remaining := limit - len(out)
		if remaining <= 0 {
			break
		}
		err := s.queryPrefix(ctx, chatPK(id), "MEMBER#", nil, remaining, func(item map[string]types.AttributeValue) bool {
			var m ddbMember
			if err := attributevalue.UnmarshalMap(item, &m); err != nil || m.ChatID == "" || m.UserID == "" {
				return false
			}
			out = append(out, domain.ChatMember{ChatID: m.ChatID, UserID: m.UserID})
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) FetchUserProfiles(ctx context.Context, userIDs []string) ([]domain.User, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(userIDs))
	for _, id := range dedupe(userIDs) {
		keys = append(keys, itemKey(userPK(id), skProfile))
	}
	items, err := s.batchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(items))
	for _, item := range items {
		var p ddbProfile
		if err := attributevalue.UnmarshalMap(item, &p); err != nil || p.UserID == "" {
			continue
		}
		out = append(out, domain.User{ID: p.UserID, DisplayName: p.Name, PhoneNumber: p.PhoneNumber})
	}
	return out, nil
}

// batchGet fetches keys in chunks, retrying unprocessed keys a few times.
func (s *Store) batchGet(ctx context.Context, keys []map[string]types.AttributeValue) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for start := 0; start < len(keys); start += batchGetMax {
		end := min(start+batchGetMax, len(keys))
		pending := map[string]types.KeysAndAttributes{s.table: {Keys: keys[start:end]}}

		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == 4 {
				return nil, appErrors.NewUnavailable("batch get left unprocessed keys", nil)
			}
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(attempt*50) * time.Millisecond):
				}
			}
			out, err := s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, mapError(err, "batch get")
			}
			items = append(items, out.Responses[s.table]...)
			pending = out.UnprocessedKeys
		}
	}
	return items, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(userPK(userID), skProfile),
	})
	if err != nil {
		return nil, mapError(err, "failed to get profile")
	}
	if out.Item == nil {
		return nil, appErrors.NewNotFound("profile not found")
	}
	var p ddbProfile
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal profile")
	}
	return &domain.Profile{
		ID:             p.UserID,
		Name:           p.Name,
		PhoneNumber:    p.PhoneNumber,
		University:     p.University,
		AvatarURL:      p.AvatarURL,
		GraduationYear: p.GraduationYear,
	}, nil
}

func (s *Store) UpdateGraduationYear(ctx context.Context, userID string, year *int) error {
	var update expression.UpdateBuilder
	if year == nil {
		update = expression.Remove(expression.Name("GraduationYear"))
	} else {
		update = expression.Set(expression.Name("GraduationYear"), expression.Value(*year))
	}
	return s.updateProfile(ctx, userID, update)
}

func (s *Store) UpdateAvatarURL(ctx context.Context, userID, url string) error {
	return s.updateProfile(ctx, userID, expression.Set(expression.Name("AvatarURL"), expression.Value(url)))
}

func (s *Store) updateProfile(ctx context.Context, userID string, update expression.UpdateBuilder) error {
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("PK"))).
		Build()
	if err != nil {
		return appErrors.Wrap(err, "failed to build update expression")
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       itemKey(userPK(userID), skProfile),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return mapError(err, "profile")
	}
	return nil
}

func (s *Store) GetNotes(ctx context.Context, userID string) (*domain.CareerNotes, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       itemKey(userPK(userID), skNotes),
	})
	if err != nil {
		return nil, mapError(err, "failed to get notes")
	}
	if out.Item == nil {
		return nil, appErrors.NewNotFound("notes not found")
	}
	var n ddbNotes
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, appErrors.Wrap(err, "failed to unmarshal notes")
	}
	notes := &domain.CareerNotes{UserID: userID, Body: n.Body}
	if t, err := time.Parse(time.RFC3339Nano, n.UpdatedAt); err == nil {
		notes.UpdatedAt = &t
	}
	return notes, nil
}

func (s *Store) UpsertNotes(ctx context.Context, notes domain.CareerNotes) (*domain.CareerNotes, error) {
	now := s.now().UTC()
	item, err := attributevalue.MarshalMap(ddbNotes{
		PK:        userPK(notes.UserID),
		SK:        skNotes,
		UserID:    notes.UserID,
		Body:      notes.Body,
		UpdatedAt: now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to marshal notes")
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: item}); err != nil {
		return nil, mapError(err, "failed to save notes")
	}
	notes.UpdatedAt = &now
	return &notes, nil
}

// Seed writes fixture rows using the key layout above.
func (s *Store) Seed(ctx context.Context, f *repository.Fixture) error {
	var items []any
	for _, u := range f.Users {
		items = append(items, ddbProfile{
			PK: userPK(u.ID), SK: skProfile, UserID: u.ID,
			Name: u.Name, PhoneNumber: u.PhoneNumber, University: u.University, GraduationYear: u.GraduationYear,
		})
	}
	for _, r := range f.Requests {
		status := r.StatusOrDefault()
		items = append(items,
			ddbRequest{PK: userPK(r.Initiator), SK: "REQ#OUT#" + r.Target, Initiator: r.Initiator, Target: r.Target, Status: status},
			ddbRequest{PK: userPK(r.Target), SK: "REQ#IN#" + r.Initiator, Initiator: r.Initiator, Target: r.Target, Status: status},
		)
	}
	for _, c := range f.Chats {
		items = append(items, ddbChat{PK: chatPK(c.ID), SK: skMeta, ChatID: c.ID, MemberCount: c.Count(), DisplayName: c.DisplayName})
		for _, uid := range c.Members {
			items = append(items,
				ddbMember{PK: chatPK(c.ID), SK: "MEMBER#" + uid, ChatID: c.ID, UserID: uid},
				ddbMember{PK: userPK(uid), SK: "CHAT#" + c.ID, ChatID: c.ID, UserID: uid},
			)
		}
	}

	for _, it := range items {
		av, err := attributevalue.MarshalMap(it)
		if err != nil {
			return appErrors.Wrap(err, "failed to marshal seed item")
		}
		if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: av}); err != nil {
			return mapError(err, "failed to seed item")
		}
	}
	s.logger.Info("seeded dynamodb table", zap.String("table", s.table), zap.Int("items", len(items)))
	return nil
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
