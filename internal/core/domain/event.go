package domain

import "time"

// AuthEventType classifies an entry in the auth audit trail.
type AuthEventType string

const (
	EventLoginSuccess AuthEventType = "login_success"
	EventLoginFailure AuthEventType = "login_failure"
	EventAccessDenied AuthEventType = "access_denied"
)

// AuthEvent records a security-relevant outcome for later review.
type AuthEvent struct {
	ID        string
	Type      AuthEventType
	UserID    string // empty when the email did not resolve to a user
	Email     string
	Section   Section // access_denied only
	Action    Action  // access_denied only
	Reason    string
	RemoteIP  string
	Timestamp time.Time
}

// ShardKey is the value events are partitioned on so that all events for
// the same account are written in order.
func (e AuthEvent) ShardKey() string {
	if e.UserID != "" {
		return e.UserID
	}
	return e.Email
}
