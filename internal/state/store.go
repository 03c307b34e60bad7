// Package state issues and redeems one-time OAuth redirect correlation
// tokens. A state token binds the callback to the session that started the
// flow; redemption is single-use, enforced with a conditional delete so a
// replayed callback cannot reuse it. Records carry a DynamoDB TTL.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/halcyonlabs/fieldjournal/backend/internal/model"
)

const DefaultTTL = 10 * time.Minute

// ErrInvalidState is returned when a state token is unknown, already
// redeemed, or expired.
var ErrInvalidState = errors.New("invalid or expired state token")

// Store persists pending OAuth states. With a nil DynamoDB client it keeps
// them in memory (dev and tests).
type Store struct {
	client    *dynamodb.Client
	tableName string
	ttl       time.Duration

	pending map[string]model.OAuthState
	mu      sync.Mutex
}

// NewStore creates a Store for the given table.
func NewStore(client *dynamodb.Client, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttl:       DefaultTTL,
		pending:   make(map[string]model.OAuthState),
	}
}

// Issue creates a fresh state token bound to the user.
func (s *Store) Issue(ctx context.Context, userID string) (string, error) {
	record := model.OAuthState{
		State:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.ttl).Unix(),
	}

	if s.client == nil {
		s.mu.Lock()
		s.pending[record.State] = record
		s.mu.Unlock()
		return record.State, nil
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return "", fmt.Errorf("store state: %w", err)
	}
	return record.State, nil
}

// Redeem consumes a state token exactly once and returns the user it was
// issued to. The delete-with-return makes redemption atomic: two concurrent
// callbacks with the same state cannot both succeed.
func (s *Store) Redeem(ctx context.Context, stateToken string) (string, error) {
	now := time.Now().Unix()

	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		record, ok := s.pending[stateToken]
		if !ok || record.ExpiresAt < now {
			return "", ErrInvalidState
		}
		delete(s.pending, stateToken)
		return record.UserID, nil
	}

	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"state": &types.AttributeValueMemberS{Value: stateToken},
		},
		ConditionExpression: aws.String("attribute_exists(#st)"),
		ExpressionAttributeNames: map[string]string{
			"#st": "state",
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return "", ErrInvalidState
		}
		return "", fmt.Errorf("redeem state: %w", err)
	}

	var record model.OAuthState
	if err := attributevalue.UnmarshalMap(out.Attributes, &record); err != nil {
		return "", fmt.Errorf("unmarshal state: %w", err)
	}
	// TTL deletion is lazy; reject expired records explicitly.
	if record.ExpiresAt < now {
		return "", ErrInvalidState
	}
	return record.UserID, nil
}
