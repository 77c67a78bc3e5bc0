package models

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	Confirm   string   `json:"confirm"`
	IsTeacher *bool    `json:"isTeacher"`
	Subject   []string `json:"subject,omitempty"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// TokenPairResponse is what login and refresh endpoints answer with.
type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (r TokenPairResponse) Pair() TokenPair {
	return TokenPair{Access: r.Access, Refresh: r.Refresh}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

// SessionState is the view of the session exposed to the UI.
type SessionState struct {
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token,omitempty"`
}
