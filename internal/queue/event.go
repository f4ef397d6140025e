// Package queue defines the audit messages exchanged over the message broker
// and the consumer that turns them into an append-only log.
package queue

import "context"

// Audit event types.
const (
	EventLoginSucceeded      = "login.succeeded"
	EventLoginFailed         = "login.failed"
	EventLogout              = "logout"
	EventResetIssued         = "password_reset.issued"
	EventResetCompleted      = "password_reset.completed"
	EventResetRejected       = "password_reset.rejected"
	EventSecurityAnswerOK    = "security_answer.verified"
	EventSecurityAnswerWrong = "security_answer.rejected"
)

// AuditEvent is published for every security-relevant action. It never
// carries passwords, tokens or security answers.
type AuditEvent struct {
	Type       string `json:"type"`
	Username   string `json:"username"`
	Role       string `json:"role,omitempty"`
	RemoteIP   string `json:"remote_ip,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

// Recorder accepts audit events. Implementations must not block the caller
// on broker failures.
type Recorder interface {
	Record(ctx context.Context, ev AuditEvent)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Record(context.Context, AuditEvent) {}

type requestMetaKey struct{}

// RequestMeta is the per-request data stamped onto audit events.
type RequestMeta struct {
	RemoteIP  string
	RequestID string
}

// WithRequestMeta returns ctx carrying m.
func WithRequestMeta(ctx context.Context, m RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// MetaFrom returns the RequestMeta stored in ctx, if any.
func MetaFrom(ctx context.Context) RequestMeta {
	m, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return m
}
