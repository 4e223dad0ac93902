package models

// UserRef is a read-only projection of a user record owned by the identity
// service. Bot marks a designated automated participant whose replies are
// generated rather than typed.
type UserRef struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
	Bot    bool   `json:"bot,omitempty"`
}
