package model

import "time"

// Message is a mail message as the view layer sees it: either a received
// message or a draft (IsDraft with a DraftID). The view never mutates it;
// edits flow through the mail gateway and show up on the next fetch.
type Message struct {
	ID                     string    `json:"id"`
	ThreadID               string    `json:"threadId"`
	Subject                string    `json:"subject"`
	From                   string    `json:"from"`
	To                     string    `json:"to"`
	Date                   time.Time `json:"date"`
	Snippet                string    `json:"snippet"`
	Body                   string    `json:"body"`
	AISuggestionApplicable bool      `json:"aiSuggestionApplicable"`
	DraftID                string    `json:"draftId,omitempty"`
	IsDraft                bool      `json:"isDraft"`
	IsRead                 bool      `json:"isRead"`
}
