package whatsapp

import (
	"regexp"
	"strings"
	"time"
)

// data-pre-plain-text looks like "[12:48, 24/4/2023] Some Name: "
var prePlainTextRegex = regexp.MustCompile(`^\[(.*?)\] (.*?):\s*$`)

// parsePrePlainText splits the attribute into its timestamp label and
// sender name. ok is false when the attribute doesn't have the
// expected shape.
func parsePrePlainText(attr string) (label, sender string, ok bool) {
	match := prePlainTextRegex.FindStringSubmatch(attr)
	if len(match) != 3 {
		return "", "", false
	}
	return strings.TrimSpace(match[1]), strings.TrimSpace(match[2]), true
}

// the label format tracks the account's locale, try the shapes seen
// in the wild before giving up
var timeLabelLayouts = []string{
	"15:04, 2/1/2006",
	"15:04, 1/2/2006",
	"3:04 pm, 2/1/2006",
	"3:04 PM, 2/1/2006",
	"15:04",
}

// parseTimeLabel converts a rendered timestamp label into a concrete
// time in the given location. A label that matches none of the known
// layouts yields a zero time, callers keep the raw label around
// regardless.
func parseTimeLabel(label string, loc *time.Location) time.Time {
	label = strings.TrimSpace(label)
	for _, layout := range timeLabelLayouts {
		t, err := time.ParseInLocation(layout, label, loc)
		if err != nil {
			continue
		}
		// bare clock labels carry no date, pin them to today
		if t.Year() == 0 {
			now := time.Now().In(loc)
			t = time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		}
		return t
	}
	return time.Time{}
}
