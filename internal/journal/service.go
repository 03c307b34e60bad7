package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/halcyonlabs/fieldjournal/backend/internal/auth"
	"github.com/halcyonlabs/fieldjournal/backend/internal/model"
	"github.com/halcyonlabs/fieldjournal/backend/internal/whiteboard"
)

// ErrNotInWorkspace is returned when the connected account does not belong
// to the organisation's whiteboard workspace.
var ErrNotInWorkspace = errors.New("user is not in the organisation workspace")

// Vertical gap between an anchor widget's bottom edge and an appended note.
const noteGap = 40.0

// Service orchestrates journal provisioning and note appends. All outbound
// calls run strictly one after another; each is bounded by the whiteboard
// client's timeout.
type Service struct {
	wb            *whiteboard.Client
	auth          *auth.Service
	store         *Store
	policy        whiteboard.MembershipPolicy
	roomLabel     string
	boardLinkBase string
}

// Config carries the Service's collaborators and settings.
type Config struct {
	Whiteboard *whiteboard.Client
	Auth       *auth.Service
	Store      *Store
	Policy     whiteboard.MembershipPolicy
	// RoomLabel is the preferred room-name label used when ranking rooms.
	RoomLabel string
	// BoardLinkBase composes an open URL when the API omits a view link,
	// e.g. "https://app.whiteboard.example.com/boards".
	BoardLinkBase string
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	roomLabel := cfg.RoomLabel
	if roomLabel == "" {
		roomLabel = "Private"
	}
	return &Service{
		wb:            cfg.Whiteboard,
		auth:          cfg.Auth,
		store:         cfg.Store,
		policy:        cfg.Policy,
		roomLabel:     roomLabel,
		boardLinkBase: strings.TrimRight(cfg.BoardLinkBase, "/"),
	}
}

// ProvisionResult is the outcome of a provisioning call.
type ProvisionResult struct {
	BoardID string `json:"boardId"`
	OpenURL string `json:"openUrl"`
	// Existing reports that a previous invocation already provisioned the
	// board and no remote resources were created this time.
	Existing bool `json:"existing"`
}

func (s *Service) openURL(board *whiteboard.Board) string {
	if board.ViewLink != "" {
		return board.ViewLink
	}
	return fmt.Sprintf("%s/%s", s.boardLinkBase, board.ID)
}

// Provision resolves or creates the journal board for a project: private
// room → project folder → board, each step idempotent against repeated
// invocation. Room resolution never creates (no_existing_room surfaces as a
// conflict); folders and boards are created on demand. The resulting link is
// stored so later calls short-circuit.
func (s *Service) Provision(ctx context.Context, userID, projectID, projectName string) (*ProvisionResult, error) {
	if link, err := s.store.Get(ctx, projectID); err == nil {
		return &ProvisionResult{BoardID: link.BoardID, OpenURL: link.OpenURL, Existing: true}, nil
	}

	token, err := s.auth.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	identity, ok, err := s.wb.VerifyMembership(ctx, token, s.policy)
	if err != nil {
		return nil, err
	}
	if !ok || identity.LastWorkspaceID == "" {
		return nil, ErrNotInWorkspace
	}

	if err := s.auth.UpdateWorkspaceID(ctx, userID, identity.LastWorkspaceID); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("failed to record workspace hint")
	}

	room, err := s.wb.EnsureRoom(ctx, token, identity.LastWorkspaceID, s.roomLabel)
	if err != nil {
		return nil, err
	}

	folder, err := s.wb.EnsureFolder(ctx, token, room.ID, projectName)
	if err != nil {
		return nil, err
	}

	board, err := s.wb.CreateBoard(ctx, token, whiteboard.CreateBoardParams{
		Title:    fmt.Sprintf("%s Journal", projectName),
		RoomID:   room.ID,
		FolderID: folder.ID,
	})
	if err != nil {
		return nil, err
	}

	link, err := s.store.Save(ctx, model.BoardLink{
		ProjectID: projectID,
		BoardID:   board.ID,
		OpenURL:   s.openURL(board),
		OwnerID:   userID,
	})
	if err != nil {
		return nil, err
	}

	return &ProvisionResult{
		BoardID:  link.BoardID,
		OpenURL:  link.OpenURL,
		Existing: link.BoardID != board.ID,
	}, nil
}

// Resolve returns the previously provisioned link for a project, or
// ErrNotProvisioned. When the caller has a working connection the board's
// current view link is fetched so a remotely-changed URL does not go stale;
// any failure on that path falls back to the stored link.
func (s *Service) Resolve(ctx context.Context, userID, projectID string) (*model.BoardLink, error) {
	link, err := s.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	token, err := s.auth.AccessToken(ctx, userID)
	if err != nil {
		return link, nil
	}
	board, err := s.wb.GetBoard(ctx, token, link.BoardID)
	if err != nil {
		log.Warn().Err(err).Str("board", link.BoardID).Msg("board refresh failed, using stored link")
		return link, nil
	}
	if board.ViewLink != "" && board.ViewLink != link.OpenURL {
		link.OpenURL = board.ViewLink
	}
	return link, nil
}

// NoteResult is the outcome of appending a note.
type NoteResult struct {
	WidgetID string               `json:"widgetId"`
	Tagged   whiteboard.TagResult `json:"tagged"`
}

// AppendNote places a sticky note on the project's journal board, anchored
// below the most relevant existing widget in the category (falling back to
// the board's lowest note, then to the origin). Tagging is best-effort: a
// failed tag never blocks the save.
func (s *Service) AppendNote(ctx context.Context, userID, projectID, text, category string) (*NoteResult, error) {
	link, err := s.store.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	token, err := s.auth.AccessToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	widgets, err := s.wb.ListWidgets(ctx, token, link.BoardID)
	if err != nil {
		return nil, err
	}

	var x, y float64
	if anchor := whiteboard.LatestInCategory(widgets, category); anchor != nil {
		x = anchor.X
		y = anchor.Y + anchor.Height + noteGap
	}

	widgetID, err := s.wb.CreateWidget(ctx, token, link.BoardID, whiteboard.CreateWidgetParams{
		Text: text,
		X:    x,
		Y:    y,
	})
	if err != nil {
		return nil, err
	}

	result := &NoteResult{WidgetID: widgetID, Tagged: whiteboard.TagResult{OK: true}}
	if strings.TrimSpace(category) != "" {
		tagIDs, err := s.wb.EnsureTags(ctx, token, link.BoardID, []string{category})
		if err != nil {
			log.Warn().Err(err).Str("board", link.BoardID).Msg("tag listing failed, note left untagged")
			result.Tagged = whiteboard.TagResult{}
			return result, nil
		}
		result.Tagged = s.wb.ApplyTags(ctx, token, link.BoardID, widgetID, tagIDs)
	}
	return result, nil
}
