package telegram

import (
	"html"
	"time"
)

// Messages are rendered in the diary's home timezone (UTC+7, no DST).
var displayZone = time.FixedZone("ICT", 7*60*60)

func FormatTime(t time.Time) string {
	return t.In(displayZone).Format("2 January 2006, 15:04")
}

// EscapeHTML escapes text for parse_mode HTML.
func EscapeHTML(s string) string {
	return html.EscapeString(s)
}
