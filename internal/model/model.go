package model

import "time"

// UserToken is a user's whiteboard connection stored in DynamoDB. Only the
// KMS-encrypted refresh token is persisted; access tokens are minted on
// demand and never stored.
type UserToken struct {
	UserID                string    `json:"user_id" dynamodbav:"user_id"`
	EncryptedRefreshToken string    `json:"encrypted_refresh_token" dynamodbav:"encrypted_refresh_token"`
	WorkspaceID           string    `json:"workspace_id" dynamodbav:"workspace_id"` // Last known workspace hint
	UpdatedAt             time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// BoardLink records the journal board provisioned for a project.
type BoardLink struct {
	ProjectID string    `json:"project_id" dynamodbav:"project_id"`
	BoardID   string    `json:"board_id" dynamodbav:"board_id"`
	OpenURL   string    `json:"open_url" dynamodbav:"open_url"`
	OwnerID   string    `json:"owner_id" dynamodbav:"owner_id"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// OAuthState is a one-time redirect correlation token (anti-CSRF). ExpiresAt
// doubles as the DynamoDB TTL attribute.
type OAuthState struct {
	State     string `json:"state" dynamodbav:"state"`
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"`
}
