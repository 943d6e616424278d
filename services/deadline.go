package services

import (
	"strings"
	"time"
)

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Deadline is the single registration cutover. Timestamps without a zone are
// read as UTC. An unparseable value keeps registration open.
type Deadline struct {
	raw   string
	at    time.Time
	valid bool
}

func ParseDeadline(raw string) Deadline {
	d := Deadline{raw: raw}
	value := strings.TrimSpace(raw)
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			d.at = t.UTC()
			d.valid = true
			break
		}
	}
	return d
}

func (d Deadline) Valid() bool {
	return d.valid
}

func (d Deadline) Raw() string {
	return d.raw
}

func (d Deadline) Open(now time.Time) bool {
	if !d.valid {
		return true
	}
	return now.Before(d.at)
}
