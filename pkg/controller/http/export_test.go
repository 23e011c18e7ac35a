package http

import "time"

var VerifySlackSignature = verifySlackSignature

// SetNow replaces the clock used to stamp inbound messages
func (h *SlackWebhookHandler) SetNow(now func() time.Time) {
	h.now = now
}
