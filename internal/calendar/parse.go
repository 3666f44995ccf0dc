package calendar

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// ParseICS reads the events in an iCalendar stream. It understands the
// subset WriteICS produces plus folded lines and property parameters.
func ParseICS(r io.Reader) ([]Event, error) {
	var events []Event
	var current *Event
	var lines []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// Continuation lines start with a space or tab
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += line[1:]
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading calendar: %w", err)
	}

	for _, line := range lines {
		colonIdx := strings.Index(line, ":")
		if colonIdx == -1 {
			continue
		}
		field := line[:colonIdx]
		value := line[colonIdx+1:]

		// Drop property parameters (e.g., DTSTART;VALUE=DATE:20231215)
		if semicolonIdx := strings.Index(field, ";"); semicolonIdx != -1 {
			field = field[:semicolonIdx]
		}

		switch field {
		case "BEGIN":
			if value == "VEVENT" {
				current = &Event{}
			}
		case "END":
			if value == "VEVENT" && current != nil {
				events = append(events, *current)
				current = nil
			}
		default:
			if current != nil {
				setField(current, field, value)
			}
		}
	}

	return events, nil
}

func setField(ev *Event, field, value string) {
	switch field {
	case "UID":
		ev.UID = unescapeText(value)
	case "SUMMARY":
		ev.Summary = unescapeText(value)
	case "DESCRIPTION":
		ev.Description = unescapeText(value)
	case "LOCATION":
		ev.Location = unescapeText(value)
	case "DTSTART":
		ev.Start = parseDateTime(value)
	case "DTEND":
		ev.End = parseDateTime(value)
	}
}

func unescapeText(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func parseDateTime(value string) time.Time {
	formats := []string{
		"20060102T150405Z", // UTC datetime
		"20060102T150405",  // Local datetime
		"20060102",         // Date only
	}

	for _, format := range formats {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}

	return time.Time{}
}
