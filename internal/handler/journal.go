package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/halcyonlabs/fieldjournal/backend/internal/journal"
)

// JournalHandler handles project journal requests.
type JournalHandler struct {
	service   *journal.Service
	jwtSecret string
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(s *journal.Service, jwtSecret string) *JournalHandler {
	return &JournalHandler{service: s, jwtSecret: jwtSecret}
}

// Provision resolves or creates the journal board for a project.
func (h *JournalHandler) Provision(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return failure(http.StatusUnauthorized, codeNotAuthenticated, "Sign in first."), nil
	}

	var body struct {
		ProjectID   string `json:"projectId"`
		ProjectName string `json:"projectName"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return failure(http.StatusBadRequest, codeGeneric, "Invalid request body."), nil
	}

	body.ProjectID = strings.TrimSpace(body.ProjectID)
	body.ProjectName = strings.TrimSpace(body.ProjectName)
	if body.ProjectID == "" || body.ProjectName == "" {
		return failure(http.StatusBadRequest, codeGeneric, "projectId and projectName are required."), nil
	}

	result, err := h.service.Provision(ctx, userID, body.ProjectID, body.ProjectName)
	if err != nil {
		log.Warn().Err(err).Str("projectId", body.ProjectID).Msg("provision failed")
		return failureFor(err), nil
	}

	return jsonResponse(http.StatusOK, result), nil
}

// Resolve returns the board link for an already-provisioned project.
func (h *JournalHandler) Resolve(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return failure(http.StatusUnauthorized, codeNotAuthenticated, "Sign in first."), nil
	}

	projectID := strings.TrimSpace(req.QueryStringParameters["projectId"])
	if projectID == "" {
		return failure(http.StatusBadRequest, codeGeneric, "projectId is required."), nil
	}

	link, err := h.service.Resolve(ctx, userID, projectID)
	if err != nil {
		if !errors.Is(err, journal.ErrNotProvisioned) {
			log.Error().Err(err).Str("projectId", projectID).Msg("resolve failed")
		}
		return failureFor(err), nil
	}

	return jsonResponse(http.StatusOK, map[string]string{
		"boardId": link.BoardID,
		"openUrl": link.OpenURL,
	}), nil
}

// AppendNote writes a journal note onto the project's board.
func (h *JournalHandler) AppendNote(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.jwtSecret)
	if err != nil {
		return failure(http.StatusUnauthorized, codeNotAuthenticated, "Sign in first."), nil
	}

	var body struct {
		ProjectID string `json:"projectId"`
		Text      string `json:"text"`
		Category  string `json:"category"`
	}
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return failure(http.StatusBadRequest, codeGeneric, "Invalid request body."), nil
	}

	body.ProjectID = strings.TrimSpace(body.ProjectID)
	if body.ProjectID == "" || strings.TrimSpace(body.Text) == "" {
		return failure(http.StatusBadRequest, codeGeneric, "projectId and text are required."), nil
	}

	result, err := h.service.AppendNote(ctx, userID, body.ProjectID, body.Text, body.Category)
	if err != nil {
		log.Warn().Err(err).Str("projectId", body.ProjectID).Msg("append note failed")
		return failureFor(err), nil
	}

	return jsonResponse(http.StatusOK, result), nil
}
