// Package journal provisions and tracks a project's journal board on the
// whiteboard service.
package journal

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

	"github.com/halcyonlabs/fieldjournal/backend/internal/model"
)

// ErrNotProvisioned is returned when a project has no recorded board yet.
var ErrNotProvisioned = errors.New("journal board not provisioned")

// Store persists project→board links. With a nil DynamoDB client it keeps
// links in memory (dev and tests).
type Store struct {
	client    *dynamodb.Client
	tableName string

	links map[string]model.BoardLink
	mu    sync.Mutex
}

// NewStore creates a Store for the given table.
func NewStore(client *dynamodb.Client, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		links:     make(map[string]model.BoardLink),
	}
}

// Save records the link for a project. The put is conditional on the project
// not being linked yet: when two provisioning calls race, the loser observes
// the winner's link and returns it, so callers converge on one board per
// project.
func (s *Store) Save(ctx context.Context, link model.BoardLink) (model.BoardLink, error) {
	link.CreatedAt = time.Now()

	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.links[link.ProjectID]; ok {
			return existing, nil
		}
		s.links[link.ProjectID] = link
		return link, nil
	}

	item, err := attributevalue.MarshalMap(link)
	if err != nil {
		return model.BoardLink{}, fmt.Errorf("marshal board link: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(project_id)"),
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			existing, getErr := s.Get(ctx, link.ProjectID)
			if getErr != nil {
				return model.BoardLink{}, fmt.Errorf("read racing board link: %w", getErr)
			}
			return *existing, nil
		}
		return model.BoardLink{}, fmt.Errorf("save board link: %w", err)
	}
	return link, nil
}

// Get returns the link for a project, or ErrNotProvisioned.
func (s *Store) Get(ctx context.Context, projectID string) (*model.BoardLink, error) {
	if s.client == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		link, ok := s.links[projectID]
		if !ok {
			return nil, ErrNotProvisioned
		}
		return &link, nil
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"project_id": &types.AttributeValueMemberS{Value: projectID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get board link: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotProvisioned
	}

	var link model.BoardLink
	if err := attributevalue.UnmarshalMap(out.Item, &link); err != nil {
		return nil, fmt.Errorf("unmarshal board link: %w", err)
	}
	return &link, nil
}
