package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Mention targets offered in addition to roles
const (
	MentionEveryone = "@everyone"
	MentionHere     = "@here"
)

// ActionRecord is one auto-reply rule. Mentions hold "@everyone", "@here" or a role ID.
type ActionRecord struct {
	Name          string     `json:"name" firestore:"name"`
	DayMention    string     `json:"day_mention" firestore:"day_mention"`
	NightMention  string     `json:"night_mention" firestore:"night_mention"`
	DayWindow     TimeWindow `json:"day_window" firestore:"day_window"`
	NightWindow   TimeWindow `json:"night_window" firestore:"night_window"`
	WatchChannels []string   `json:"watch_channels" firestore:"watch_channels"`
	ReplyChannels []string   `json:"reply_channels" firestore:"reply_channels"`
	Message       string     `json:"message" firestore:"message"`
	CreatedAt     time.Time  `json:"created_at" firestore:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" firestore:"updated_at"`
}

// Field names one mutable attribute of an ActionRecord
type Field string

const (
	FieldDayMention    Field = "day_mention"
	FieldNightMention  Field = "night_mention"
	FieldDayStart      Field = "day_start"
	FieldDayEnd        Field = "day_end"
	FieldNightStart    Field = "night_start"
	FieldNightEnd      Field = "night_end"
	FieldWatchChannels Field = "watch_channels"
	FieldReplyChannels Field = "reply_channels"
	FieldMessage       Field = "message"
)

// FieldUpdate carries a new value for a single field. Text is used by scalar fields,
// Channels by the two channel set fields.
type FieldUpdate struct {
	Field    Field
	Text     string
	Channels []string
}

// SetText builds a FieldUpdate for a scalar field
func SetText(field Field, value string) FieldUpdate {
	return FieldUpdate{Field: field, Text: value}
}

// SetChannels builds a FieldUpdate for a channel set field
func SetChannels(field Field, ids []string) FieldUpdate {
	return FieldUpdate{Field: field, Channels: ids}
}

// Apply merges u into the record
func (r *ActionRecord) Apply(u FieldUpdate) error {
	switch u.Field {
	case FieldDayMention:
		r.DayMention = u.Text
	case FieldNightMention:
		r.NightMention = u.Text
	case FieldDayStart:
		r.DayWindow.Start = u.Text
	case FieldDayEnd:
		r.DayWindow.End = u.Text
	case FieldNightStart:
		r.NightWindow.Start = u.Text
	case FieldNightEnd:
		r.NightWindow.End = u.Text
	case FieldWatchChannels:
		r.WatchChannels = uniqueChannels(u.Channels)
	case FieldReplyChannels:
		r.ReplyChannels = uniqueChannels(u.Channels)
	case FieldMessage:
		r.Message = u.Text
	default:
		return goerr.Wrap(ErrUnknownField, "cannot apply update", goerr.V(FieldKey, u.Field))
	}
	return nil
}

// Validate checks the invariants of a finalized record
func (r *ActionRecord) Validate() error {
	switch {
	case r.Name == "":
		return goerr.Wrap(ErrIncomplete, "name is required")
	case len(r.WatchChannels) == 0:
		return goerr.Wrap(ErrIncomplete, "at least one watch channel is required", goerr.V(ActionNameKey, r.Name))
	case len(r.ReplyChannels) == 0:
		return goerr.Wrap(ErrIncomplete, "at least one reply channel is required", goerr.V(ActionNameKey, r.Name))
	case r.Message == "":
		return goerr.Wrap(ErrIncomplete, "message is required", goerr.V(ActionNameKey, r.Name))
	}
	return nil
}

// Watches reports whether channelID is in the watch set
func (r *ActionRecord) Watches(channelID string) bool {
	for _, id := range r.WatchChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (r *ActionRecord) Clone() *ActionRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.WatchChannels = cloneStrings(r.WatchChannels)
	c.ReplyChannels = cloneStrings(r.ReplyChannels)
	return &c
}

// uniqueChannels drops empty and repeated IDs, keeping first-seen order
func uniqueChannels(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
