// Package auth runs the OAuth2 authorization-code flow against the whiteboard
// provider and persists the resulting connection. The flow operations
// themselves are stateless; tokens are never cached or renewed in the
// background — callers refresh on demand.
package auth

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
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/halcyonlabs/fieldjournal/backend/internal/crypto"
	"github.com/halcyonlabs/fieldjournal/backend/internal/model"
)

// ErrNotConnected is returned when a user has no stored whiteboard
// connection.
var ErrNotConnected = errors.New("whiteboard account not connected")

// TokenError is a rejection from the provider's token endpoint, carrying the
// HTTP status and the provider's error_description.
type TokenError struct {
	Status      int
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token endpoint rejected request (status %d): %s %s", e.Status, e.Code, e.Description)
}

// wrapTokenError converts *oauth2.RetrieveError into a TokenError; other
// errors pass through unchanged.
func wrapTokenError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		status := 0
		if rerr.Response != nil {
			status = rerr.Response.StatusCode
		}
		return &TokenError{Status: status, Code: rerr.ErrorCode, Description: rerr.ErrorDescription}
	}
	return err
}

// Service handles the OAuth2 flow and token persistence. With a nil DynamoDB
// client it keeps tokens in memory (dev and tests).
type Service struct {
	oauthConfig  *oauth2.Config
	dynamoClient *dynamodb.Client
	tableName    string
	encryptor    crypto.Encryptor

	tokens map[string]model.UserToken
	mu     sync.RWMutex
}

// NewService creates a Service. The oauth2.Config (client id/secret, redirect
// URI, scopes, provider endpoints) is constructed by the caller.
func NewService(oauthConfig *oauth2.Config, dynamoClient *dynamodb.Client, tableName string, encryptor crypto.Encryptor) *Service {
	return &Service{
		oauthConfig:  oauthConfig,
		dynamoClient: dynamoClient,
		tableName:    tableName,
		encryptor:    encryptor,
		tokens:       make(map[string]model.UserToken),
	}
}

// Config returns the OAuth2 config.
func (s *Service) Config() *oauth2.Config {
	return s.oauthConfig
}

// AuthCodeURL builds the provider's authorize URL with response_type=code,
// the configured client id, redirect URI and scopes, and the caller-supplied
// opaque state.
func (s *Service) AuthCodeURL(state string) string {
	return s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode trades an authorization code for tokens.
func (s *Service) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, wrapTokenError(err)
	}
	return token, nil
}

// Refresh obtains a fresh access token from a refresh token. The returned
// token replaces the old one wholesale; if the provider rotated the refresh
// token the new value is included.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	seed := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // Force refresh
	}
	token, err := s.oauthConfig.TokenSource(ctx, seed).Token()
	if err != nil {
		return nil, wrapTokenError(err)
	}
	return token, nil
}

// SaveToken encrypts the refresh token and stores the connection, preserving
// an existing workspace hint.
func (s *Service) SaveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	if token.RefreshToken == "" {
		return fmt.Errorf("no refresh token in response")
	}

	encrypted, err := s.encryptor.Encrypt(ctx, token.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	var workspaceID string
	if existing, err := s.GetUserToken(ctx, userID); err == nil {
		workspaceID = existing.WorkspaceID
	}

	userToken := model.UserToken{
		UserID:                userID,
		EncryptedRefreshToken: encrypted,
		WorkspaceID:           workspaceID,
		UpdatedAt:             time.Now(),
	}

	if s.dynamoClient == nil {
		s.mu.Lock()
		s.tokens[userID] = userToken
		s.mu.Unlock()
		return nil
	}

	item, err := attributevalue.MarshalMap(userToken)
	if err != nil {
		return fmt.Errorf("marshal user token: %w", err)
	}
	_, err = s.dynamoClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// GetUserToken loads a stored connection. ErrNotConnected when none exists.
func (s *Service) GetUserToken(ctx context.Context, userID string) (*model.UserToken, error) {
	if s.dynamoClient == nil {
		s.mu.RLock()
		t, ok := s.tokens[userID]
		s.mu.RUnlock()
		if !ok {
			return nil, ErrNotConnected
		}
		return &t, nil
	}

	out, err := s.dynamoClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user token: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotConnected
	}

	var userToken model.UserToken
	if err := attributevalue.UnmarshalMap(out.Item, &userToken); err != nil {
		return nil, fmt.Errorf("unmarshal user token: %w", err)
	}
	return &userToken, nil
}

// UpdateWorkspaceID records the workspace a user's journal boards live in.
func (s *Service) UpdateWorkspaceID(ctx context.Context, userID, workspaceID string) error {
	if s.dynamoClient == nil {
		s.mu.Lock()
		if t, ok := s.tokens[userID]; ok {
			t.WorkspaceID = workspaceID
			s.tokens[userID] = t
		}
		s.mu.Unlock()
		return nil
	}

	_, err := s.dynamoClient.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
		},
		UpdateExpression: aws.String("SET workspace_id = :ws, updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ws":  &types.AttributeValueMemberS{Value: workspaceID},
			":now": &types.AttributeValueMemberS{Value: time.Now().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("update workspace id: %w", err)
	}
	return nil
}

// AccessToken mints a fresh access token for the user from the stored
// refresh token. A rotated refresh token is persisted best-effort.
func (s *Service) AccessToken(ctx context.Context, userID string) (string, error) {
	userToken, err := s.GetUserToken(ctx, userID)
	if err != nil {
		return "", err
	}

	refreshToken, err := s.encryptor.Decrypt(ctx, userToken.EncryptedRefreshToken)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token: %w", err)
	}

	token, err := s.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		if err := s.SaveToken(ctx, userID, token); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("failed to persist rotated refresh token")
		}
	}
	return token.AccessToken, nil
}
