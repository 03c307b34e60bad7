package whiteboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Room is a private or shared container of boards in the remote service.
type Room struct {
	ID         string
	Name       string
	Visibility string
}

// Folder is a named grouping of boards inside a Room.
type Folder struct {
	ID   string
	Name string
}

// Board is a single visual canvas.
type Board struct {
	ID       string
	Title    string
	RoomID   string
	FolderID string
	ViewLink string
}

const visibilityPrivate = "private"

func roomFromRaw(m map[string]any) Room {
	return Room{
		ID:         stringField(m, "id"),
		Name:       stringField(m, "name", "title"),
		Visibility: strings.ToLower(stringField(m, "visibility", "access")),
	}
}

// ListRooms lists the rooms of a workspace.
func (c *Client) ListRooms(ctx context.Context, token, workspaceID string) ([]Room, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/workspaces/%s/rooms", workspaceID), token)
	if err != nil {
		return nil, err
	}
	var rooms []Room
	for _, item := range collectionItems(raw) {
		if m, ok := item.(map[string]any); ok {
			rooms = append(rooms, roomFromRaw(m))
		}
	}
	return rooms, nil
}

// roomScore ranks a candidate room: private visibility dominates, and among
// ties a name containing the preferred label or the literal word "private"
// wins.
func roomScore(r Room, preferredLabel string) int {
	score := 0
	if r.Visibility == visibilityPrivate {
		score += 2
	}
	name := strings.ToLower(r.Name)
	if (preferredLabel != "" && strings.Contains(name, strings.ToLower(preferredLabel))) ||
		strings.Contains(name, visibilityPrivate) {
		score++
	}
	return score
}

// EnsureRoom resolves the room used as the user's private working area in the
// workspace. It never creates: a shared private resource must not be
// provisioned speculatively by a read path. Listing failures degrade to an
// empty list; an empty list is reported as a no_existing_room conflict.
// Selection is deterministic for a given room list regardless of order.
func (c *Client) EnsureRoom(ctx context.Context, token, workspaceID, preferredLabel string) (*Room, error) {
	rooms, err := c.ListRooms(ctx, token, workspaceID)
	if err != nil {
		log.Warn().Err(err).Str("workspace", workspaceID).Msg("room listing failed, treating as empty")
		rooms = nil
	}
	if len(rooms) == 0 {
		return nil, &ConflictError{Code: ConflictNoExistingRoom}
	}

	best := rooms[0]
	bestScore := roomScore(best, preferredLabel)
	for _, r := range rooms[1:] {
		if s := roomScore(r, preferredLabel); s > bestScore {
			best, bestScore = r, s
		}
	}
	return &best, nil
}

// CreateRoom explicitly creates a private room in the workspace. Callers that
// need room provisioning use this; EnsureRoom deliberately does not.
func (c *Client) CreateRoom(ctx context.Context, token, workspaceID, name string) (*Room, error) {
	raw, err := c.post(ctx, fmt.Sprintf("/workspaces/%s/rooms", workspaceID), token, map[string]any{
		"name":       name,
		"visibility": visibilityPrivate,
	})
	if err != nil {
		return nil, err
	}
	room := roomFromRaw(asObject(raw))
	return &room, nil
}

// EnsureFolder finds the folder whose trimmed name matches projectName
// case-insensitively, creating it with the exact caller-supplied name when
// absent. Two racing invocations may both create; the service is trusted to
// reject or tolerate the duplicate.
func (c *Client) EnsureFolder(ctx context.Context, token, roomID, projectName string) (*Folder, error) {
	path := fmt.Sprintf("/rooms/%s/folders", roomID)

	raw, err := c.get(ctx, path, token)
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(projectName))
	for _, item := range collectionItems(raw) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := stringField(m, "name", "title")
		if strings.ToLower(strings.TrimSpace(name)) == want {
			return &Folder{ID: stringField(m, "id"), Name: name}, nil
		}
	}

	created, err := c.post(ctx, path, token, map[string]any{"name": projectName})
	if err != nil {
		return nil, err
	}
	m := asObject(created)
	return &Folder{ID: stringField(m, "id"), Name: stringField(m, "name", "title")}, nil
}

// CreateBoardParams names the board to create and where it lives.
type CreateBoardParams struct {
	Title    string
	RoomID   string
	FolderID string
}

func boardFromRaw(m map[string]any) Board {
	return Board{
		ID:       stringField(m, "id"),
		Title:    stringField(m, "title", "name"),
		RoomID:   stringField(m, "roomId"),
		FolderID: stringField(m, "folderId"),
		ViewLink: stringField(m, "viewLink"),
	}
}

// CreateBoard creates a board via the current-generation endpoint, falling
// back to the legacy per-room endpoint only when the current one answers 404
// (not deployed). Any other failure propagates unchanged; this is a narrow
// compatibility shim, not a retry policy.
func (c *Client) CreateBoard(ctx context.Context, token string, p CreateBoardParams) (*Board, error) {
	raw, err := c.post(ctx, "/boards", token, map[string]any{
		"title":    p.Title,
		"roomId":   p.RoomID,
		"folderId": p.FolderID,
	})
	if err != nil {
		if !isStatus(err, 404) {
			return nil, err
		}
		body := map[string]any{"title": p.Title}
		if p.FolderID != "" {
			body["folderId"] = p.FolderID
		}
		raw, err = c.post(ctx, fmt.Sprintf("/rooms/%s/boards", p.RoomID), token, body)
		if err != nil {
			return nil, err
		}
	}
	board := boardFromRaw(asObject(raw))
	if board.RoomID == "" {
		board.RoomID = p.RoomID
	}
	return &board, nil
}

// GetBoard fetches a single board.
func (c *Client) GetBoard(ctx context.Context, token, boardID string) (*Board, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/boards/%s", boardID), token)
	if err != nil {
		return nil, err
	}
	board := boardFromRaw(asObject(raw))
	return &board, nil
}
