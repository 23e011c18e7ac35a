package model

import (
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// unsetLabel is shown in summaries for fields that were never set
const unsetLabel = "unset"

// TimeWindow is a start/end pair of HHMM strings, kept exactly as the user typed them
type TimeWindow struct {
	Start string `json:"start" firestore:"start"`
	End   string `json:"end" firestore:"end"`
}

// Contains reports whether Start <= now <= End under plain string comparison.
// A window with Start > End (e.g. 1800-0859) never contains anything.
func (w TimeWindow) Contains(now string) bool {
	return w.Start <= now && now <= w.End
}

// ContainsWrapped is Contains, except that Start > End is read as a window that crosses
// midnight: 1800-0859 contains 2300 and 0100.
func (w TimeWindow) ContainsWrapped(now string) bool {
	if w.Start <= w.End {
		return w.Contains(now)
	}
	return now >= w.Start || now <= w.End
}

// IsSet reports whether both ends have been provided
func (w TimeWindow) IsSet() bool {
	return w.Start != "" && w.End != ""
}

// Format renders the window as "HH:MM - HH:MM"
func (w TimeWindow) Format() string {
	return formatOrUnset(w.Start) + " - " + formatOrUnset(w.End)
}

func formatOrUnset(s string) string {
	if s == "" {
		return unsetLabel
	}
	return FormatHHMM(s)
}

// FormatHHMM renders a 4 character "HHMM" as "HH:MM". Any other length is returned unchanged.
func FormatHHMM(s string) string {
	if len(s) != 4 {
		return s
	}
	return s[:2] + ":" + s[2:]
}

// ClockHHMM returns the zero padded 24-hour "HHMM" of t in loc
func ClockHHMM(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%02d%02d", t.Hour(), t.Minute())
}

// ValidateHHMM checks that s is a well formed 4 digit 24-hour time
func ValidateHHMM(s string) error {
	if len(s) != 4 {
		return goerr.Wrap(ErrInvalidTime, "time must be 4 digits", goerr.V("time", s))
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return goerr.Wrap(ErrInvalidTime, "time must be digits only", goerr.V("time", s))
		}
	}
	hour := int(s[0]-'0')*10 + int(s[1]-'0')
	minute := int(s[2]-'0')*10 + int(s[3]-'0')
	if hour > 23 || minute > 59 {
		return goerr.Wrap(ErrInvalidTime, "time out of range", goerr.V("time", s))
	}
	return nil
}
