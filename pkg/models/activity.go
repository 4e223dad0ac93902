package models

// ActivityType enumerates the social actions that produce a notification.
type ActivityType string

const (
	ActivityLike    ActivityType = "like"
	ActivityComment ActivityType = "comment"
	ActivityFollow  ActivityType = "follow"
	ActivityMessage ActivityType = "message"
)

// Valid reports whether t is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityLike, ActivityComment, ActivityFollow, ActivityMessage:
		return true
	}
	return false
}

// ActivityRefs carries the optional references to whatever triggered the
// activity. Fields are opaque ids owned by the content store collaborators.
type ActivityRefs struct {
	Post         string `json:"post,omitempty"`
	Comment      string `json:"comment,omitempty"`
	Conversation string `json:"conversation,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Activity is a notification record owned by Owner about an action Actor
// performed. Never created when Owner == Actor.
type Activity struct {
	ID    string       `json:"id"`
	Owner string       `json:"owner"`
	Actor string       `json:"actor"`
	Type  ActivityType `json:"type"`
	ActivityRefs
	Read bool  `json:"read"`
	TS   int64 `json:"ts"`
}
