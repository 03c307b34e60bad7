package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/halcyonlabs/fieldjournal/backend/internal/auth"
	"github.com/halcyonlabs/fieldjournal/backend/internal/state"
	"github.com/halcyonlabs/fieldjournal/backend/internal/whiteboard"
)

// AuthHandler handles whiteboard connection requests.
type AuthHandler struct {
	authService *auth.Service
	states      *state.Store
	wb          *whiteboard.Client
	policy      whiteboard.MembershipPolicy
	jwtSecret   string
	frontendURL string
	devMode     bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(s *auth.Service, st *state.Store, wb *whiteboard.Client, policy whiteboard.MembershipPolicy, jwtSecret, frontendURL string, devMode bool) *AuthHandler {
	return &AuthHandler{
		authService: s,
		states:      st,
		wb:          wb,
		policy:      policy,
		jwtSecret:   jwtSecret,
		frontendURL: frontendURL,
		devMode:     devMode,
	}
}

// Connect initiates the whiteboard OAuth2 flow for the signed-in user.
func (h *AuthHandler) Connect(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return failure(http.StatusUnauthorized, codeNotAuthenticated, "Sign in before connecting the whiteboard."), nil
	}

	stateToken, err := h.states.Issue(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("issue oauth state")
		return failure(http.StatusInternalServerError, codeGeneric, "Could not start the connection flow."), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": h.authService.AuthCodeURL(stateToken),
		},
	}, nil
}

// Callback handles the OAuth2 redirect from the whiteboard service. The state
// token is redeemed exactly once; a replayed or forged state is rejected
// before any code exchange happens.
func (h *AuthHandler) Callback(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if errCode := req.QueryStringParameters["error"]; errCode != "" {
		log.Warn().Str("error", errCode).Msg("oauth consent denied")
		return h.redirect("denied"), nil
	}

	userID, err := h.states.Redeem(ctx, req.QueryStringParameters["state"])
	if err != nil {
		if errors.Is(err, state.ErrInvalidState) {
			return failure(http.StatusBadRequest, codeGeneric, "Invalid or expired state."), nil
		}
		log.Error().Err(err).Msg("redeem oauth state")
		return failure(http.StatusInternalServerError, codeGeneric, "Could not complete the connection flow."), nil
	}

	code := req.QueryStringParameters["code"]
	if code == "" {
		return failure(http.StatusBadRequest, codeGeneric, "Missing code."), nil
	}

	token, err := h.authService.ExchangeCode(ctx, code)
	if err != nil {
		log.Error().Err(err).Msg("exchange code")
		return h.redirect("error"), nil
	}

	identity, ok, err := h.wb.VerifyMembership(ctx, token.AccessToken, h.policy)
	if err != nil {
		log.Error().Err(err).Msg("verify membership")
		return h.redirect("error"), nil
	}
	if !ok {
		return h.redirect("wrong_org"), nil
	}

	if err := h.authService.SaveToken(ctx, userID, token); err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("save token")
		return h.redirect("error"), nil
	}

	if identity.LastWorkspaceID != "" {
		if err := h.authService.UpdateWorkspaceID(ctx, userID, identity.LastWorkspaceID); err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("record workspace id")
		}
	}

	return h.redirect("connected"), nil
}

// Status reports whether the user's whiteboard connection is established.
func (h *AuthHandler) Status(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return failure(http.StatusUnauthorized, codeNotAuthenticated, "Sign in first."), nil
	}

	record, err := h.authService.GetUserToken(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotConnected) {
			return jsonResponse(http.StatusOK, map[string]any{"connected": false}), nil
		}
		log.Error().Err(err).Str("userId", userID).Msg("load user token")
		return failure(http.StatusInternalServerError, codeGeneric, "Could not read the connection status."), nil
	}

	return jsonResponse(http.StatusOK, map[string]any{
		"connected":   true,
		"workspaceId": record.WorkspaceID,
	}), nil
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	// SameSite must match DevLogin
	sameSite := "None"
	if h.devMode {
		sameSite = "Lax"
	}

	cookie := fmt.Sprintf("%s=; HttpOnly; Path=/; Max-Age=0; SameSite=%s; Secure", sessionCookie, sameSite)

	resp := jsonResponse(http.StatusOK, map[string]bool{"success": true})
	resp.MultiValueHeaders = map[string][]string{
		"Set-Cookie": {cookie},
	}
	return resp, nil
}

// DevLogin issues a temporary session without going through the real
// identity provider. Only available in DEV_MODE.
func (h *AuthHandler) DevLogin(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if !h.devMode {
		return failure(http.StatusNotFound, codeGeneric, "Not found."), nil
	}

	userID := fmt.Sprintf("dev-user-%s", uuid.New().String())

	claims := jwt.MapClaims{
		"sub":  userID,
		"name": "Dev User",
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}
	jwtToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := jwtToken.SignedString([]byte(h.jwtSecret))
	if err != nil {
		return failure(http.StatusInternalServerError, codeGeneric, "Failed to sign token."), nil
	}

	cookie := fmt.Sprintf("%s=%s; HttpOnly; Path=/; Max-Age=86400; SameSite=Lax; Secure", sessionCookie, signedToken)

	resp := jsonResponse(http.StatusOK, map[string]string{
		"userId": userID,
		"token":  signedToken,
	})
	resp.MultiValueHeaders = map[string][]string{
		"Set-Cookie": {cookie},
	}
	return resp, nil
}

func (h *AuthHandler) redirect(result string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": fmt.Sprintf("%s/?whiteboard=%s", h.frontendURL, result),
		},
	}
}
