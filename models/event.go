package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type EventID string

const (
	EventComicStrip EventID = "comic_strip"
	EventPromptIdol EventID = "prompt_idol"
	EventAIBlitz    EventID = "ai_blitz"
)

// AllEvents is the fixed enumeration order used for scope resolution,
// event statistics and archive exports.
var AllEvents = []EventID{EventComicStrip, EventPromptIdol, EventAIBlitz}

// DefaultFeePerHead is charged for events missing from the catalog.
const DefaultFeePerHead int64 = 250

func (e EventID) Valid() bool {
	for _, id := range AllEvents {
		if id == e {
			return true
		}
	}
	return false
}

type Event struct {
	ID          EventID `json:"event_id"`
	Name        string  `json:"event_name"`
	ExportLabel string  `json:"-"`
	FeePerHead  int64   `json:"fee_per_head"`
	MinMembers  int     `json:"min_members"`
	MaxMembers  int     `json:"max_members"`
}

// EventCatalog is the immutable per-event fee and team-size table.
type EventCatalog struct {
	events map[EventID]Event
}

func DefaultEvents() []Event {
	return []Event{
		{ID: EventComicStrip, Name: "AI Comic Strip Challenge", ExportLabel: "AI_Comic_Strip", FeePerHead: 250, MinMembers: 1, MaxMembers: 3},
		{ID: EventPromptIdol, Name: "Prompt Engineering Idol", ExportLabel: "Prompt_Engineering_Idol", FeePerHead: 200, MinMembers: 1, MaxMembers: 2},
		{ID: EventAIBlitz, Name: "AI Blitz", ExportLabel: "AI_Blitz", FeePerHead: 300, MinMembers: 4, MaxMembers: 4},
	}
}

func NewEventCatalog(events []Event) (EventCatalog, error) {
	m := make(map[EventID]Event, len(events))
	for _, ev := range events {
		if !ev.ID.Valid() {
			return EventCatalog{}, fmt.Errorf("unknown event %q", ev.ID)
		}
		if ev.FeePerHead < 0 {
			return EventCatalog{}, fmt.Errorf("event %s: fee per head must not be negative", ev.ID)
		}
		if ev.MinMembers < 1 || ev.MaxMembers < ev.MinMembers || ev.MaxMembers > 4 {
			return EventCatalog{}, fmt.Errorf("event %s: invalid team size %d-%d", ev.ID, ev.MinMembers, ev.MaxMembers)
		}
		m[ev.ID] = ev
	}
	return EventCatalog{events: m}, nil
}

func (c EventCatalog) Get(id EventID) (Event, bool) {
	ev, ok := c.events[id]
	return ev, ok
}

// All returns the configured events in AllEvents order.
func (c EventCatalog) All() []Event {
	out := make([]Event, 0, len(c.events))
	for _, id := range AllEvents {
		if ev, ok := c.events[id]; ok {
			out = append(out, ev)
		}
	}
	return out
}

func (c EventCatalog) FeePerHead(id EventID) int64 {
	if ev, ok := c.events[id]; ok {
		return ev.FeePerHead
	}
	return DefaultFeePerHead
}

// Fee is the per-head fee multiplied by the counted members of the team.
func (c EventCatalog) Fee(t *Team) decimal.Decimal {
	return decimal.NewFromInt(c.FeePerHead(t.EventID) * int64(t.MemberCount()))
}

func (c EventCatalog) Name(id EventID) string {
	if ev, ok := c.events[id]; ok && ev.Name != "" {
		return ev.Name
	}
	return string(id)
}
