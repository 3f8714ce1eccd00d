// Package identity reports who the current session belongs to. The cart
// manager keys its persisted state on this answer, so the provider also
// exposes a change subscription: login and logout must be observable.
package identity

// Provider reports the current authenticated user.
//
// CurrentUserID returns the user identifier and true, or "" and false for an
// anonymous (guest) session. An unresolvable identity is a guest, never an
// error.
type Provider interface {
	CurrentUserID() (string, bool)
	Subscribe(fn func()) (unsubscribe func())
}

// Static is a Provider with a fixed answer. It serves request-scoped
// contexts where the identity was already resolved by authentication and
// cannot change for the lifetime of the consumer.
type Static struct {
	userID string
}

// NewStatic returns a Provider that always reports userID. An empty userID
// means guest.
func NewStatic(userID string) Static {
	return Static{userID: userID}
}

func (s Static) CurrentUserID() (string, bool) {
	return s.userID, s.userID != ""
}

// Subscribe is a no-op: a static identity never changes.
func (s Static) Subscribe(func()) (unsubscribe func()) {
	return func() {}
}

// Guest is the anonymous identity.
var Guest = NewStatic("")
