package models

// Session identifies the signed-in user for one request. It is passed
// explicitly to every service call.
type Session struct {
	UserID string
	Token  string
}

// Authenticated reports whether the session belongs to a user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}
