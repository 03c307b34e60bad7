package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/halcyonlabs/fieldjournal/backend/internal/auth"
	"github.com/halcyonlabs/fieldjournal/backend/internal/crypto"
	"github.com/halcyonlabs/fieldjournal/backend/internal/handler"
	"github.com/halcyonlabs/fieldjournal/backend/internal/journal"
	"github.com/halcyonlabs/fieldjournal/backend/internal/secret"
	"github.com/halcyonlabs/fieldjournal/backend/internal/state"
	"github.com/halcyonlabs/fieldjournal/backend/internal/whiteboard"
)

// App holds the dependencies for the Lambda function.
type App struct {
	authHandler      *handler.AuthHandler
	journalHandler   *handler.JournalHandler
	apiGatewaySecret string
}

func env(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// oauthScopes returns the authorization scopes to request. The default covers
// everything the journal flows touch: identity, workspace/room listing, and
// board writes. WHITEBOARD_SCOPES (comma or space separated) overrides it.
func oauthScopes() []string {
	if v := os.Getenv("WHITEBOARD_SCOPES"); v != "" {
		return strings.Fields(strings.ReplaceAll(v, ",", " "))
	}
	return []string{
		"identity:read",
		"workspaces:read",
		"rooms:read",
		"boards:read",
		"boards:write",
	}
}

// NewApp initializes the application dependencies.
func NewApp(ctx context.Context) *App {
	devMode := os.Getenv("DEV_MODE") == "true"

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(fmt.Sprintf("unable to load SDK config, %v", err))
	}

	// DynamoDB Client. In DEV_MODE the stores fall back to process-local
	// maps, so a missing local endpoint does not block development.
	var dynamoClient *dynamodb.Client
	if devMode {
		log.Info().Msg("DEV_MODE: using in-memory stores")
	} else {
		dynamoClient = dynamodb.NewFromConfig(cfg)
	}

	// KMS Client
	var encryptor crypto.Encryptor
	if devMode {
		encryptor = crypto.NewMockEncryptor()
		log.Info().Msg("DEV_MODE: using MockEncryptor")
	} else {
		kmsClient := kms.NewFromConfig(cfg)
		encryptor = crypto.NewKMSEncryptor(kmsClient, env("KMS_KEY_ID", "alias/fieldjournal-token-key"))
	}

	// ---------- Secret Resolver ----------
	var resolver secret.Resolver
	if devMode {
		resolver = secret.NewEnvResolver()
		log.Info().Msg("DEV_MODE: using EnvResolver")
	} else {
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(cfg))
	}

	clientSecret, err := resolver.GetSecret(ctx, env("WHITEBOARD_CLIENT_SECRET_PARAM", "/fieldjournal/whiteboard-client-secret"))
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve whiteboard client secret")
	}

	jwtSecret, err := resolver.GetSecret(ctx, env("JWT_SECRET_PARAM", "/fieldjournal/jwt-secret"))
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve JWT secret")
		jwtSecret = "default-dev-secret"
	}

	apiGatewaySecret, err := resolver.GetSecret(ctx, env("API_GATEWAY_SECRET_PARAM", "/fieldjournal/api-gateway-secret"))
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve API gateway secret")
	}

	frontendURL := env("FRONTEND_URL", "http://localhost:3000")

	// OAuth2 Config
	redirectURL := os.Getenv("WHITEBOARD_REDIRECT_URL")
	if redirectURL == "" {
		if devMode {
			redirectURL = "http://localhost:8080/whiteboard/callback"
		} else {
			redirectURL = frontendURL + "/api/whiteboard/callback"
		}
	}

	oauthConfig := &oauth2.Config{
		ClientID:     os.Getenv("WHITEBOARD_CLIENT_ID"),
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       oauthScopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  env("WHITEBOARD_AUTH_URL", "https://whiteboard.example.com/oauth/authorize"),
			TokenURL: env("WHITEBOARD_TOKEN_URL", "https://api.whiteboard.example.com/oauth/token"),
		},
	}

	authService := auth.NewService(oauthConfig, dynamoClient, env("USER_TOKENS_TABLE", "UserTokens"), encryptor)
	stateStore := state.NewStore(dynamoClient, env("OAUTH_STATES_TABLE", "OAuthStates"))

	// Whiteboard client: a single bounded timeout covers every outbound call.
	timeout := whiteboard.DefaultTimeout
	if v := os.Getenv("WHITEBOARD_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	apiURL := env("WHITEBOARD_API_URL", "https://api.whiteboard.example.com/v2")
	wb := whiteboard.NewClient(apiURL, timeout)

	policy := whiteboard.MembershipPolicy{
		CompanyID:   os.Getenv("WHITEBOARD_COMPANY_ID"),
		NamePattern: whiteboard.DefaultCompanyNamePattern,
	}

	journalService := journal.NewService(journal.Config{
		Whiteboard:    wb,
		Auth:          authService,
		Store:         journal.NewStore(dynamoClient, env("BOARD_LINKS_TABLE", "BoardLinks")),
		Policy:        policy,
		RoomLabel:     env("WHITEBOARD_ROOM_LABEL", "Private"),
		BoardLinkBase: env("WHITEBOARD_BOARD_LINK_BASE", "https://whiteboard.example.com/boards"),
	})

	return &App{
		authHandler:      handler.NewAuthHandler(authService, stateStore, wb, policy, jwtSecret, frontendURL, devMode),
		journalHandler:   handler.NewJournalHandler(journalService, jwtSecret),
		apiGatewaySecret: apiGatewaySecret,
	}
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	log.Info().Str("method", method).Str("path", path).Msg("request")

	// CORS Preflight
	if method == "OPTIONS" {
		return corsResponse(events.APIGatewayProxyResponse{StatusCode: 204}), nil
	}

	// Security: Verify Request Origin (CloudFront only)
	// Skip check for OPTIONS (preflight) and if DEV_MODE is true
	if os.Getenv("DEV_MODE") != "true" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			log.Warn().Msg("missing or invalid X-Origin-Verify header")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	path = strings.TrimPrefix(path, "/api")

	// /auth
	if strings.HasPrefix(path, "/auth") {
		if path == "/auth/dev-login" && method == "GET" {
			return corsResponse(must(app.authHandler.DevLogin(ctx, req))), nil
		}
		if path == "/auth/logout" && method == "POST" {
			return corsResponse(must(app.authHandler.Logout(ctx, req))), nil
		}
	}

	// /whiteboard
	if strings.HasPrefix(path, "/whiteboard") {
		if path == "/whiteboard/connect" && method == "GET" {
			return corsResponse(must(app.authHandler.Connect(ctx, req))), nil
		}
		if path == "/whiteboard/callback" && method == "GET" {
			return corsResponse(must(app.authHandler.Callback(ctx, req))), nil
		}
		if path == "/whiteboard/status" && method == "GET" {
			return corsResponse(must(app.authHandler.Status(ctx, req))), nil
		}
	}

	// /journal
	if strings.HasPrefix(path, "/journal") {
		if path == "/journal/provision" && method == "POST" {
			return corsResponse(must(app.journalHandler.Provision(ctx, req))), nil
		}
		if path == "/journal/resolve" && method == "GET" {
			return corsResponse(must(app.journalHandler.Resolve(ctx, req))), nil
		}
		if path == "/journal/notes" && method == "POST" {
			return corsResponse(must(app.journalHandler.AppendNote(ctx, req))), nil
		}
	}

	return corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = env("FRONTEND_URL", "http://localhost:3000")
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

// must unwraps a handler response, ignoring the error.
func must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		log.Error().Err(err).Msg("handler error")
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
