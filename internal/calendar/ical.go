// Package calendar exports appointment records as calendar events.
package calendar

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/pest-detectives/backend/internal/storage/models"
)

// GoogleTemplateURL is the base of the add-to-calendar link.
const GoogleTemplateURL = "https://calendar.google.com/calendar/render"

// DefaultDuration is used for DTEND when the requested time parses.
const DefaultDuration = time.Hour

// Event is a single calendar entry.
type Event struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start,omitempty"`
	End         time.Time `json:"end,omitempty"`
}

// Exporter turns appointment records into events.
type Exporter struct {
	BusinessName string
	Location     *time.Location
	Now          func() time.Time
}

// NewExporter creates an exporter interpreting requested times in loc.
func NewExporter(businessName string, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{BusinessName: businessName, Location: loc, Now: time.Now}
}

// Event builds the calendar entry for rec. The requested time is free
// text; Start and End are only set when it parses as a date.
func (e *Exporter) Event(rec models.AppointmentRecord) Event {
	ev := Event{
		UID:      rec.ID + "@pest-detectives",
		Summary:  e.BusinessName + " appointment",
		Location: rec.Where,
	}

	desc := []string{"Requested time: " + rec.When}
	if rec.Note != "" {
		desc = append(desc, "Notes: "+rec.Note)
	}
	desc = append(desc, "Status: "+string(rec.Status))
	ev.Description = strings.Join(desc, "\n")

	if start, ok := parseWhen(rec.When, e.Location); ok {
		ev.Start = start
		ev.End = start.Add(DefaultDuration)
	}
	return ev
}

// EventURL returns the add-to-calendar link for rec.
func (e *Exporter) EventURL(rec models.AppointmentRecord) string {
	ev := e.Event(rec)

	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", ev.Summary)
	q.Set("details", ev.Description)
	if ev.Location != "" {
		q.Set("location", ev.Location)
	}
	if !ev.Start.IsZero() {
		q.Set("dates", formatUTC(ev.Start)+"/"+formatUTC(ev.End))
	}
	return GoogleTemplateURL + "?" + q.Encode()
}

// WriteICS writes rec as a single-event calendar.
func (e *Exporter) WriteICS(w io.Writer, rec models.AppointmentRecord) error {
	ev := e.Event(rec)
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	bw := bufio.NewWriter(w)
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Pest Detectives//Appointments//EN",
		"METHOD:PUBLISH",
		"BEGIN:VEVENT",
		"UID:" + escapeText(ev.UID),
		"DTSTAMP:" + formatUTC(now()),
	}
	if !ev.Start.IsZero() {
		lines = append(lines, "DTSTART:"+formatUTC(ev.Start), "DTEND:"+formatUTC(ev.End))
	}
	lines = append(lines,
		"SUMMARY:"+escapeText(ev.Summary),
		"DESCRIPTION:"+escapeText(ev.Description),
	)
	if ev.Location != "" {
		lines = append(lines, "LOCATION:"+escapeText(ev.Location))
	}
	lines = append(lines, "END:VEVENT", "END:VCALENDAR")

	for _, l := range lines {
		if _, err := bw.WriteString(fold(l)); err != nil {
			return fmt.Errorf("writing calendar: %w", err)
		}
	}
	return bw.Flush()
}

var whenLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02 3:04 PM",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"01/02/2006 3:04 PM",
	"01/02/2006 15:04",
}

func parseWhen(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range whenLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatUTC(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

var textEscaper = strings.NewReplacer(
	"\\", "\\\\",
	";", "\\;",
	",", "\\,",
	"\r\n", "\\n",
	"\n", "\\n",
)

func escapeText(s string) string {
	return textEscaper.Replace(s)
}

// fold splits a content line into 75-octet pieces without breaking UTF-8
// sequences and terminates it with CRLF.
func fold(line string) string {
	const limit = 75
	if len(line) <= limit {
		return line + "\r\n"
	}

	var b strings.Builder
	width := limit
	for len(line) > width {
		cut := width
		for cut > 0 && !isRuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		width = limit - 1
	}
	b.WriteString(line)
	b.WriteString("\r\n")
	return b.String()
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
