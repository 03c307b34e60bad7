package whiteboard

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

// Tag is a named, coloured label attachable to widgets.
type Tag struct {
	ID        string
	Name      string
	ColorName string
	ColorHex  string
}

// Colour assigned to tags created by EnsureTags.
const (
	defaultTagColorName = "blue"
	defaultTagColorHex  = "#2d9bf0"
)

// CreateWidgetParams describes a sticky note to place on a board.
type CreateWidgetParams struct {
	Text   string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// CreateWidget creates a sticky-note widget and returns its id.
func (c *Client) CreateWidget(ctx context.Context, token, boardID string, p CreateWidgetParams) (string, error) {
	width, height := p.Width, p.Height
	if width <= 0 {
		width = DefaultWidgetWidth
	}
	if height <= 0 {
		height = DefaultWidgetHeight
	}
	raw, err := c.post(ctx, fmt.Sprintf("/boards/%s/widgets", boardID), token, map[string]any{
		"type":   "sticky_note",
		"text":   p.Text,
		"x":      p.X,
		"y":      p.Y,
		"width":  width,
		"height": height,
	})
	if err != nil {
		return "", err
	}
	return stringField(asObject(raw), "id"), nil
}

// widgetPatchBody filters a raw patch down to the fields the service accepts:
// a string text and finite numbers for geometry. Everything else is dropped.
func widgetPatchBody(patch map[string]any) map[string]any {
	body := map[string]any{}
	if text, ok := patch["text"].(string); ok {
		body["text"] = text
	}
	for _, k := range []string{"x", "y", "width", "height"} {
		if n, ok := patch[k].(float64); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			body[k] = n
		}
	}
	return body
}

// UpdateWidget applies a partial update to a widget. Only present,
// correctly-typed fields are sent; an empty resulting patch short-circuits to
// success without a network call.
func (c *Client) UpdateWidget(ctx context.Context, token, boardID, widgetID string, patch map[string]any) error {
	body := widgetPatchBody(patch)
	if len(body) == 0 {
		return nil
	}
	_, err := c.patch(ctx, fmt.Sprintf("/boards/%s/widgets/%s", boardID, widgetID), token, body)
	return err
}

// ListTags lists the board's tags.
func (c *Client) ListTags(ctx context.Context, token, boardID string) ([]Tag, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/boards/%s/tags", boardID), token)
	if err != nil {
		return nil, err
	}
	var tags []Tag
	for _, item := range collectionItems(raw) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		tags = append(tags, Tag{
			ID:        stringField(m, "id"),
			Name:      stringField(m, "name", "title"),
			ColorName: stringField(m, "colorName"),
			ColorHex:  stringField(m, "colorHex"),
		})
	}
	return tags, nil
}

// EnsureTags resolves each label to a tag id, reusing existing tags by
// case-insensitive name and creating missing ones with the default colour.
// Tag names stay unique from this client's perspective: it never creates a
// second tag whose normalised name already exists. Individual create failures
// are logged and skipped so one bad label does not block the others; only the
// ids that succeeded are returned.
func (c *Client) EnsureTags(ctx context.Context, token, boardID string, labels []string) ([]string, error) {
	existing, err := c.ListTags(ctx, token, boardID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(existing))
	for _, t := range existing {
		byName[strings.ToLower(strings.TrimSpace(t.Name))] = t.ID
	}

	var ids []string
	for _, label := range labels {
		name := strings.TrimSpace(label)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if id, ok := byName[key]; ok {
			ids = append(ids, id)
			continue
		}
		raw, err := c.post(ctx, fmt.Sprintf("/boards/%s/tags", boardID), token, map[string]any{
			"name":      name,
			"colorName": defaultTagColorName,
			"colorHex":  defaultTagColorHex,
		})
		if err != nil {
			log.Warn().Err(err).Str("label", name).Msg("tag creation failed, skipping")
			continue
		}
		id := stringField(asObject(raw), "id")
		if id == "" {
			continue
		}
		byName[key] = id
		ids = append(ids, id)
	}
	return ids, nil
}

// TagResult reports how tag application went: fully applied, partially
// applied, or not at all. Tagging is an enhancement; it never blocks the save
// path that created the widget.
type TagResult struct {
	OK      bool
	Partial bool
}

// ApplyTags attaches the given tags to a widget, best-effort and without
// rollback.
func (c *Client) ApplyTags(ctx context.Context, token, boardID, widgetID string, tagIDs []string) TagResult {
	applied := 0
	for _, tagID := range tagIDs {
		_, err := c.post(ctx, fmt.Sprintf("/boards/%s/widgets/%s/tags", boardID, widgetID), token, map[string]any{
			"tagId": tagID,
		})
		if err != nil {
			log.Warn().Err(err).Str("tag", tagID).Str("widget", widgetID).Msg("tag application failed")
			continue
		}
		applied++
	}
	return TagResult{
		OK:      applied == len(tagIDs),
		Partial: applied > 0 && applied < len(tagIDs),
	}
}
