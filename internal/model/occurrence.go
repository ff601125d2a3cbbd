package model

import (
	"fmt"
	"time"
)

// SeatingMode selects which availability shape an event occurrence
// uses.  The wire values are "GA" and "SEATED".
type SeatingMode string

const (
	GeneralAdmissionMode SeatingMode = "GA"     // tiers with remaining counts
	SeatedMode           SeatingMode = "SEATED" // individually addressable seats
)

// Valid reports whether m is one of the known seating modes.
func (m SeatingMode) Valid() bool {
	return m == GeneralAdmissionMode || m == SeatedMode
}

// TierName is the category of a ticket (VIP, FRONT_ROW, GA).
type TierName string

const (
	TierVIP      TierName = "VIP"
	TierFrontRow TierName = "FRONT_ROW"
	TierGA       TierName = "GA"
)

// EventSummary is the parent event embedded in an occurrence.
type EventSummary struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Venue is where an occurrence takes place.
type Venue struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// EventOccurrence identifies one scheduled instance of an event.  It is
// immutable once fetched and is refetched wholesale when stale.
//
// Fields:
//  ID          – event date identifier used by every booking call.
//  Event       – parent event (title, description).
//  Date        – ISO-8601 timestamp exactly as sent by the server.
//  Venue       – venue name and capacity.
//  SeatingMode – GA or SEATED; must match the availability tag.
type EventOccurrence struct {
	ID          int64        `json:"id"`
	Event       EventSummary `json:"event"`
	Date        string       `json:"date"`
	Venue       Venue        `json:"venue"`
	SeatingMode SeatingMode  `json:"seatingMode"`
}

// StartsAt parses Date.  The server is not guaranteed to include a zone
// offset, so a zoneless timestamp is read as UTC.
func (o EventOccurrence) StartsAt() (time.Time, error) {
	return parseDate(o.Date)
}

// Event is an entry in the public event listing.
type Event struct {
	ID          int64              `json:"id"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Dates       []EventDateSummary `json:"dates"`
}

// EventDateSummary is the short form of an occurrence shown in listings.
type EventDateSummary struct {
	ID          int64       `json:"id"`
	Date        string      `json:"date"`
	VenueName   string      `json:"venueName"`
	SeatingMode SeatingMode `json:"seatingMode"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
