package calendar

import (
	"bytes"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pest-detectives/backend/internal/storage/models"
)

var stamp = time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC)

func newTestExporter() *Exporter {
	e := NewExporter("Parsons Pest Detectives", time.UTC)
	e.Now = func() time.Time { return stamp }
	return e
}

func record(when string) models.AppointmentRecord {
	return models.AppointmentRecord{
		ID:     "0192f1c4-0000-7000-8000-000000000001",
		When:   when,
		Where:  "13040 Fisher Circle, McCalla, AL",
		Note:   "Side door; bring ladder",
		Status: models.StatusRequested,
	}
}

func TestEventParsesKnownLayouts(t *testing.T) {
	tests := []struct {
		when string
		want time.Time
	}{
		{"2026-10-20 14:30", time.Date(2026, 10, 20, 14, 30, 0, 0, time.UTC)},
		{"Oct 20, 2026 2:30 PM", time.Date(2026, 10, 20, 14, 30, 0, 0, time.UTC)},
		{"2026-10-20T09:00:00-05:00", time.Date(2026, 10, 20, 14, 0, 0, 0, time.UTC)},
		{"Oct 15, 2-4 PM", time.Time{}},
		{"next tuesday morning", time.Time{}},
	}

	e := newTestExporter()
	for _, tt := range tests {
		t.Run(tt.when, func(t *testing.T) {
			ev := e.Event(record(tt.when))
			if !ev.Start.Equal(tt.want) {
				t.Errorf("start = %v, want %v", ev.Start, tt.want)
			}
			if !tt.want.IsZero() && !ev.End.Equal(tt.want.Add(DefaultDuration)) {
				t.Errorf("end = %v", ev.End)
			}
		})
	}
}

func TestEventURL(t *testing.T) {
	e := newTestExporter()

	u, err := url.Parse(e.EventURL(record("2026-10-20 14:30")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "calendar.google.com" {
		t.Errorf("host = %s", u.Host)
	}
	q := u.Query()
	if q.Get("action") != "TEMPLATE" || q.Get("text") != "Parsons Pest Detectives appointment" {
		t.Errorf("query = %v", q)
	}
	if q.Get("dates") != "20261020T143000Z/20261020T153000Z" {
		t.Errorf("dates = %q", q.Get("dates"))
	}
	if q.Get("location") != "13040 Fisher Circle, McCalla, AL" {
		t.Errorf("location = %q", q.Get("location"))
	}

	u, _ = url.Parse(e.EventURL(record("Oct 15, 2-4 PM")))
	if u.Query().Has("dates") {
		t.Error("dates set for free-text time")
	}
	if !strings.Contains(u.Query().Get("details"), "Requested time: Oct 15, 2-4 PM") {
		t.Errorf("details = %q", u.Query().Get("details"))
	}
}

func TestWriteICS(t *testing.T) {
	e := newTestExporter()
	rec := record("2026-10-20 14:30")

	var buf bytes.Buffer
	if err := e.WriteICS(&buf, rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"DTSTAMP:20261015T140000Z\r\n",
		"DTSTART:20261020T143000Z\r\n",
		"LOCATION:13040 Fisher Circle\\, McCalla\\, AL\r\n",
		"END:VCALENDAR\r\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\r\n") {
		if len(line) > 75 {
			t.Errorf("line longer than 75 octets: %q", line)
		}
	}

	events, err := ParseICS(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	want := e.Event(rec)
	got := events[0]
	if got.UID != want.UID || got.Description != want.Description || got.Location != want.Location {
		t.Errorf("round trip:\n got %+v\nwant %+v", got, want)
	}
	if !got.Start.Equal(want.Start) || !got.End.Equal(want.End) {
		t.Errorf("times = %v..%v", got.Start, got.End)
	}
}

func TestWriteICSFreeTextTime(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestExporter().WriteICS(&buf, record("Oct 15, 2-4 PM")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.Contains(buf.String(), "DTSTART") {
		t.Error("DTSTART written for unparseable time")
	}
}

func TestFoldKeepsMultibyteRunes(t *testing.T) {
	line := "DESCRIPTION:" + strings.Repeat("é", 60)
	folded := fold(line)

	joined := strings.ReplaceAll(strings.TrimSuffix(folded, "\r\n"), "\r\n ", "")
	if joined != line {
		t.Errorf("unfolded line differs")
	}
	for _, part := range strings.Split(strings.TrimSuffix(folded, "\r\n"), "\r\n") {
		if !strings.HasPrefix(part, "DESCRIPTION") && !strings.HasPrefix(part, " ") {
			t.Errorf("continuation without leading space: %q", part)
		}
		if !utf8.ValidString(strings.TrimPrefix(part, " ")) {
			t.Errorf("split inside a rune: %q", part)
		}
	}
}
