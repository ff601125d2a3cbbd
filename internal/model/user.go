package model

import "strings"

// AuthUser is the user record returned by login and sign-up.
//
// Fields:
//  ID        – user identifier sent as userId on bookings.
//  Username  – login handle (may equal the email).
//  FirstName – given name, used for the default ticket holder name.
//  LastName  – family name.
//  Email     – account email.
//  CreatedAt – ISO timestamp of account creation.
//  UpdatedAt – ISO timestamp of last profile update.
type AuthUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// AuthState is what a session store persists: the bearer token and the
// user it belongs to.  Login and sign-up both return this shape.
type AuthState struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

// Identity is the authenticated caller as seen by the booking core.
type Identity struct {
	UserID    int64
	FirstName string
	LastName  string
	Email     string
	Token     string
}

// IdentityOf derives the Identity carried by a stored auth state.
func IdentityOf(s AuthState) *Identity {
	if s.User.ID == 0 {
		return nil
	}
	return &Identity{
		UserID:    s.User.ID,
		FirstName: s.User.FirstName,
		LastName:  s.User.LastName,
		Email:     s.User.Email,
		Token:     s.Token,
	}
}

// DisplayName is "First Last" with surrounding space removed.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	return strings.TrimSpace(i.FirstName + " " + i.LastName)
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest is the body of POST /api/signup.
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
