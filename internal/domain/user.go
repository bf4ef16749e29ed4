package domain

// AuthUser is the caller identity taken from a verified bearer token.
type AuthUser struct {
	ID    string
	Email string
	Name  string
}
