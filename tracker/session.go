package tracker

// Session is the identity the tracker acts for. It is passed explicitly to every remote call.
type Session struct {
	UserID string
	Token  string // bearer credential; may be empty
}

// Anonymous reports whether no user is signed in.
func (s Session) Anonymous() bool { return s.UserID == "" }
