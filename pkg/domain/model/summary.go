package model

// ActionSummary is the human readable rendering of an ActionRecord used in confirmations
// and the inspect flow
type ActionSummary struct {
	Name          string
	WatchChannels []string
	ReplyChannels []string
	DayMention    string
	NightMention  string
	DayWindow     string
	NightWindow   string
	Message       string
}

// NewActionSummary renders rec. channelNames maps IDs to display names; IDs without a
// name are shown as-is.
func NewActionSummary(rec *ActionRecord, channelNames map[string]string) *ActionSummary {
	return &ActionSummary{
		Name:          rec.Name,
		WatchChannels: channelLabels(rec.WatchChannels, channelNames),
		ReplyChannels: channelLabels(rec.ReplyChannels, channelNames),
		DayMention:    orUnset(rec.DayMention),
		NightMention:  orUnset(rec.NightMention),
		DayWindow:     rec.DayWindow.Format(),
		NightWindow:   rec.NightWindow.Format(),
		Message:       orUnset(rec.Message),
	}
}

func channelLabels(ids []string, names map[string]string) []string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok && name != "" {
			labels = append(labels, name)
			continue
		}
		labels = append(labels, id)
	}
	return labels
}

func orUnset(s string) string {
	if s == "" {
		return unsetLabel
	}
	return s
}
