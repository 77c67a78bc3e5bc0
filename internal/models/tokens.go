package models

import "time"

// TokenPair is the unit of session identity. It is replaced wholesale, never patched.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Complete reports whether both halves of the pair are present.
func (p TokenPair) Complete() bool {
	return p.Access != "" && p.Refresh != ""
}

// Claims is the part of an access token the session logic cares about.
type Claims struct {
	Exp int64 `json:"exp"`
}

func (c Claims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}
