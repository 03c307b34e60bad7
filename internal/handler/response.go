package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/halcyonlabs/fieldjournal/backend/internal/auth"
	"github.com/halcyonlabs/fieldjournal/backend/internal/journal"
	"github.com/halcyonlabs/fieldjournal/backend/internal/whiteboard"
)

// Failure codes surfaced to the frontend. These are the only states users
// see; raw remote error bodies never leave the backend.
const (
	codeNotAuthenticated = "not_authenticated"
	codeWrongWorkspace   = "not_in_organisation_workspace"
	codeNotProvisioned   = "not_provisioned"
	codeNetworkError     = "network_error"
	codeGeneric          = "error"
)

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(v)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

func failure(status int, code, detail string) events.APIGatewayProxyResponse {
	return jsonResponse(status, map[string]string{"error": code, "detail": detail})
}

// failureFor maps the error taxonomy onto the enumerated user-visible states.
func failureFor(err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, auth.ErrNotConnected):
		return failure(http.StatusUnauthorized, codeNotAuthenticated, "Connect your whiteboard account first.")
	case errors.Is(err, journal.ErrNotInWorkspace):
		return failure(http.StatusForbidden, codeWrongWorkspace, "Your whiteboard account is not in the organisation workspace.")
	case errors.Is(err, journal.ErrNotProvisioned):
		return failure(http.StatusNotFound, codeNotProvisioned, "No journal board has been provisioned for this project.")
	}

	var conflict *whiteboard.ConflictError
	if errors.As(err, &conflict) {
		return failure(http.StatusConflict, conflict.Code, "No whiteboard room is available; create one in the whiteboard app first.")
	}

	var netErr *whiteboard.NetworkError
	if errors.As(err, &netErr) {
		return failure(http.StatusBadGateway, codeNetworkError, "The whiteboard service did not respond; try again.")
	}

	var tokErr *auth.TokenError
	if errors.As(err, &tokErr) {
		// A rejected refresh means the stored connection is stale.
		return failure(http.StatusUnauthorized, codeNotAuthenticated, "Your whiteboard connection expired; reconnect.")
	}

	var apiErr *whiteboard.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			return failure(http.StatusUnauthorized, codeNotAuthenticated, "Your whiteboard connection expired; reconnect.")
		}
		log.Error().Int("status", apiErr.Status).Msg("whiteboard request rejected")
		return failure(http.StatusInternalServerError, codeGeneric, "The whiteboard service rejected the request.")
	}

	log.Error().Err(err).Msg("unexpected handler error")
	return failure(http.StatusInternalServerError, codeGeneric, "Something went wrong.")
}
