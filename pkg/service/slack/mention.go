package slack

import (
	"strings"

	"github.com/secmon-lab/autoreply/pkg/domain/model"
)

// FormatMention renders a stored mention value in Slack markup
func FormatMention(mention string) string {
	switch mention {
	case "":
		return ""
	case model.MentionEveryone:
		return "<!everyone>"
	case model.MentionHere:
		return "<!here>"
	}

	// already in markup, or a user group ID
	if strings.HasPrefix(mention, "<") {
		return mention
	}
	return "<!subteam^" + mention + ">"
}

// ReplyText is the Slack rendering of model.Reply.Text
func ReplyText(r *model.Reply) string {
	return FormatMention(r.Mention) + "\n" + r.Message
}
