package model

import "time"

// InboundMessage is the part of a chat message the dispatch engine looks at
type InboundMessage struct {
	AuthorIsBot bool
	ChannelID   string
	TeamID      string
	UserID      string
	At          time.Time
}

// Reply is one post the dispatch engine wants sent
type Reply struct {
	ChannelID string
	Mention   string
	Message   string
	Action    string
}

// Text is the body posted to the channel
func (r Reply) Text() string {
	return r.Mention + "\n" + r.Message
}
