package middleware

import "context"

type contextKey string

// OrgIDKey is the context key under which an org ID is stored.
const OrgIDKey contextKey = "org_id"

// GetOrgID returns the org ID from context, or "" if not set.
func GetOrgID(ctx context.Context) string {
	orgID, _ := ctx.Value(OrgIDKey).(string)
	return orgID
}
