package whiteboard

import (
	"context"
	"regexp"
	"strings"
)

// Identity is a read-only snapshot of the authenticated user's profile.
// Fetched per verification call; never cached by this package.
type Identity struct {
	UserID          string
	Name            string
	CompanyID       string
	CompanyName     string
	LastWorkspaceID string
}

// DefaultCompanyNamePattern is the organisational name fallback used when no
// target company id is configured. The service does not guarantee a stable
// company id is always populated, so membership accepts a best-effort name
// match over failing closed. This is a documented trust boundary.
var DefaultCompanyNamePattern = regexp.MustCompile(`(?i)\bhalcyon\b`)

// MembershipPolicy decides whether an identity belongs to the organisation.
type MembershipPolicy struct {
	// CompanyID, when set, is compared case-insensitively against the
	// identity's company id.
	CompanyID string
	// NamePattern is the fallback check over the company name when no
	// CompanyID is configured. Nil selects DefaultCompanyNamePattern.
	NamePattern *regexp.Regexp
}

// Allows reports whether the identity passes the two-tier membership check.
func (p MembershipPolicy) Allows(id *Identity) bool {
	if p.CompanyID != "" {
		return strings.EqualFold(p.CompanyID, id.CompanyID)
	}
	pattern := p.NamePattern
	if pattern == nil {
		pattern = DefaultCompanyNamePattern
	}
	return pattern.MatchString(id.CompanyName)
}

// GetIdentity fetches the authenticated user's profile. The company shows up
// either flat (companyId/companyName) or nested under "company" depending on
// the deployment generation.
func (c *Client) GetIdentity(ctx context.Context, token string) (*Identity, error) {
	raw, err := c.get(ctx, "/users/me", token)
	if err != nil {
		return nil, err
	}
	m := asObject(raw)

	id := &Identity{
		UserID:          stringField(m, "id", "userId"),
		Name:            stringField(m, "name"),
		CompanyID:       stringField(m, "companyId"),
		CompanyName:     stringField(m, "companyName"),
		LastWorkspaceID: stringField(m, "lastActiveWorkspaceId", "workspaceId"),
	}
	if company, ok := m["company"].(map[string]any); ok {
		if id.CompanyID == "" {
			id.CompanyID = stringField(company, "id")
		}
		if id.CompanyName == "" {
			id.CompanyName = stringField(company, "name", "title")
		}
	}
	return id, nil
}

// VerifyMembership fetches the identity and gates it through the policy. The
// identity is returned alongside the verdict so callers can reuse the
// workspace hint without a second fetch.
func (c *Client) VerifyMembership(ctx context.Context, token string, policy MembershipPolicy) (*Identity, bool, error) {
	id, err := c.GetIdentity(ctx, token)
	if err != nil {
		return nil, false, err
	}
	return id, policy.Allows(id), nil
}
