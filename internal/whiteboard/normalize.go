package whiteboard

import (
	"context"
	"fmt"
	"strings"
)

// Geometry defaults applied when the remote record omits dimensions.
const (
	DefaultWidgetWidth  = 240.0
	DefaultWidgetHeight = 120.0
)

// Widget is the canonical shape of a sticky-note widget. Tags are lower-cased
// category labels.
type Widget struct {
	ID     string
	Text   string
	X      float64
	Y      float64
	Width  float64
	Height float64
	Tags   []string
}

// widgetTags flattens the tag list from either the current "tags" field or
// the legacy "labels" field. Entries are plain strings or objects carrying a
// title/name; everything comes out lower-cased.
func widgetTags(m map[string]any) []string {
	raw, ok := m["tags"].([]any)
	if !ok {
		raw, _ = m["labels"].([]any)
	}
	var tags []string
	for _, entry := range raw {
		switch v := entry.(type) {
		case string:
			tags = append(tags, strings.ToLower(v))
		case map[string]any:
			if name := stringField(v, "title", "name"); name != "" {
				tags = append(tags, strings.ToLower(name))
			}
		}
	}
	return tags
}

// NormalizeWidgets converts raw remote widget records into the canonical
// Widget shape, keeping only sticky notes. The service uses several sticky
// sub-types, so the type check is a case-insensitive substring match.
func NormalizeWidgets(items []any) []Widget {
	var widgets []Widget
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		kind := strings.ToLower(stringField(m, "type"))
		if !strings.Contains(kind, "sticky") {
			continue
		}
		w := Widget{
			ID:     stringField(m, "id"),
			Text:   stringField(m, "text"),
			Width:  DefaultWidgetWidth,
			Height: DefaultWidgetHeight,
			Tags:   widgetTags(m),
		}
		if n, ok := numberField(m, "x"); ok {
			w.X = n
		}
		if n, ok := numberField(m, "y"); ok {
			w.Y = n
		}
		if n, ok := numberField(m, "width"); ok {
			w.Width = n
		}
		if n, ok := numberField(m, "height"); ok {
			w.Height = n
		}
		widgets = append(widgets, w)
	}
	return widgets
}

// ListWidgets fetches and normalises the board's sticky-note widgets.
func (c *Client) ListWidgets(ctx context.Context, token, boardID string) ([]Widget, error) {
	raw, err := c.get(ctx, fmt.Sprintf("/boards/%s/widgets", boardID), token)
	if err != nil {
		return nil, err
	}
	return NormalizeWidgets(collectionItems(raw)), nil
}

// LatestInCategory selects the widget to anchor new content to: the one with
// the lowest visual edge (greatest y+height) among widgets tagged with the
// category. When nothing carries the tag the full pool is used instead, so
// "append near the most relevant content" degrades to "append near something"
// rather than failing. Equal bottom edges keep the first widget seen; input
// order is the only ordering the remote contract defines, so the comparison
// is strictly-greater to stay stable. Returns nil only for an empty pool.
func LatestInCategory(widgets []Widget, category string) *Widget {
	want := strings.ToLower(strings.TrimSpace(category))

	var pool []Widget
	if want != "" {
		for _, w := range widgets {
			for _, tag := range w.Tags {
				if tag == want {
					pool = append(pool, w)
					break
				}
			}
		}
	}
	if len(pool) == 0 {
		pool = widgets
	}
	if len(pool) == 0 {
		return nil
	}

	best := 0
	for i := 1; i < len(pool); i++ {
		if pool[i].Y+pool[i].Height > pool[best].Y+pool[best].Height {
			best = i
		}
	}
	return &pool[best]
}
