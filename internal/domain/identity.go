package domain

// Identity is the authenticated caller of a request. Handlers receive it from
// the auth middleware and pass it to services explicitly.
type Identity struct {
	UserID string
	Email  string
}

// Owns reports whether the identity may act for userID.
func (i Identity) Owns(userID string) bool {
	return i.UserID != "" && i.UserID == userID
}
