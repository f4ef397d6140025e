package model

import "time"

// Session is the server-side state of one login. CustomerData is a snapshot
// of the record taken at login time; later record updates do not refresh it.
//
// Fields:
//
//	ID           – opaque random identifier; the cookie carries it signed.
//	UserID       – the username.
//	UserRole     – RoleAdmin or RoleCustomer.
//	UserName     – display name.
//	CustomerData – redacted copy of the customer record.
//	CreatedAt    – login time; never re-stamped.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserRole     string    `json:"user_role"`
	UserName     string    `json:"user_name"`
	CustomerData *Customer `json:"customer_data,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool { return s.UserRole == RoleAdmin }
