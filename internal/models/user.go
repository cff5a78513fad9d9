package models

// User holds the identity claims extracted from a verified Google ID token.
// It is stored in the session and returned as-is by GET /auth/user.
type User struct {
	Sub           string  `bson:"sub" json:"sub"` // OIDC subject, stable per Google account
	Name          string  `bson:"name" json:"name"`
	Email         string  `bson:"email" json:"email"`
	EmailVerified bool    `bson:"emailVerified" json:"email_verified"`
	Picture       string  `bson:"picture" json:"picture"`
	HD            *string `bson:"hd,omitempty" json:"hd"` // hosted (Workspace) domain, null for consumer accounts
}

// Clone returns a deep copy so callers can mutate without sharing the hd pointer.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.HD != nil {
		hd := *u.HD
		c.HD = &hd
	}
	return &c
}
