package models

//nolint:gosec //file not handles sensitive data
const (
	AccessKey  = "access"
	RefreshKey = "refresh"

	BearerPrefix        = "Bearer "
	AuthorizationHeader = "Authorization"
	RequestIDHeader     = "X-Request-ID"
	APIKeyHeader        = "X-API-Key"

	// InvalidTokenDetail is what the backend answers for an access token it no longer accepts.
	InvalidTokenDetail = "Given token not valid for any token type"
)

// TokenKeys lists the storage keys of a token pair.
func TokenKeys() []string {
	return []string{AccessKey, RefreshKey}
}
