package models

// Conversation is a persistent two-party messaging thread. Participants is
// an unordered pair; a given pair maps to at most one conversation.
type Conversation struct {
	ID           string   `json:"id"`
	Participants []string `json:"participants"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
}

// Has reports whether the given user is a participant.
func (c *Conversation) Has(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Other returns the participant that is not userID. For the two-party
// conversations this core creates there is exactly one.
func (c *Conversation) Other(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
