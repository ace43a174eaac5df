package models

// AdminClaims is what the admin middleware extracts from a verified bearer token.
type AdminClaims struct {
	Subject string   `json:"sub"`
	Roles   []string `json:"roles,omitempty"`
}
