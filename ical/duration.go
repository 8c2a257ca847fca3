package ical

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses an RFC 5545 section 3.3.6 DURATION value, e.g.
// "PT1H30M" or "P1DT12H" or "-P7D". Weeks (P<n>W) are also accepted even
// though they can't be mixed with other designators, per the grammar.
func ParseDuration(s string) (time.Duration, error) {
	orig := s
	if s == "" {
		return 0, fmt.Errorf("ical: empty DURATION value")
	}

	neg := false
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	} else if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("ical: invalid DURATION value %q: missing P", orig)
	}
	s = s[1:]

	if strings.HasSuffix(s, "W") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "W"))
		if err != nil {
			return 0, fmt.Errorf("ical: invalid DURATION value %q: %w", orig, err)
		}
		d := time.Duration(n) * 7 * 24 * time.Hour
		if neg {
			d = -d
		}
		return d, nil
	}

	var days, hours, mins, secs int
	inTime := false

	for len(s) > 0 {
		if s[0] == 'T' {
			inTime = true
			s = s[1:]
			continue
		}

		i := 0
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == 0 {
			return 0, fmt.Errorf("ical: invalid DURATION value %q", orig)
		}
		n, err := strconv.Atoi(s[:i])
		if err != nil {
			return 0, fmt.Errorf("ical: invalid DURATION value %q: %w", orig, err)
		}
		if i >= len(s) {
			return 0, fmt.Errorf("ical: invalid DURATION value %q: missing designator", orig)
		}
		designator := s[i]
		s = s[i+1:]

		switch designator {
		case 'D':
			days = n
		case 'H':
			hours = n
		case 'M':
			if inTime {
				mins = n
			} else {
				return 0, fmt.Errorf("ical: invalid DURATION value %q: M designator before T", orig)
			}
		case 'S':
			secs = n
		default:
			return 0, fmt.Errorf("ical: invalid DURATION value %q: unknown designator %q", orig, designator)
		}
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second
	if neg {
		d = -d
	}
	return d, nil
}

// FormatDuration renders d as an RFC 5545 DURATION value.
func FormatDuration(d time.Duration) string {
	neg := d < 0
	if neg {
		d = -d
	}

	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	mins := int(d / time.Minute)
	d -= time.Duration(mins) * time.Minute
	secs := int(d / time.Second)

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	sb.WriteByte('P')
	if days > 0 {
		fmt.Fprintf(&sb, "%dD", days)
	}
	if hours > 0 || mins > 0 || secs > 0 {
		sb.WriteByte('T')
		if hours > 0 {
			fmt.Fprintf(&sb, "%dH", hours)
		}
		if mins > 0 {
			fmt.Fprintf(&sb, "%dM", mins)
		}
		if secs > 0 {
			fmt.Fprintf(&sb, "%dS", secs)
		}
	}
	if sb.Len() == 1 || (neg && sb.Len() == 2) {
		sb.WriteString("T0S")
	}
	return sb.String()
}
