package models

type Message struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
	Sender       string `json:"sender"`
	Text         string `json:"text"`
	// Seen flips unseen -> seen exactly once; it is never reverted.
	Seen bool  `json:"seen"`
	TS   int64 `json:"ts"`
}
