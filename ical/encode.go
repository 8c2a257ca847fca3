package ical

import (
	"bufio"
	"io"
	"sort"
	"strings"
)

// maxLineOctets is the RFC 5545 section 3.1 line-folding limit: a content
// line SHOULD NOT be longer than 75 octets, excluding the line break.
const maxLineOctets = 75

// Encoder writes VCALENDAR objects as iCalendar text, folding long lines and
// escaping TEXT values per RFC 5545.
type Encoder struct {
	w   *bufio.Writer
	err error
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

func (enc *Encoder) Encode(cal *Calendar) error {
	cal.AttachTimezones()
	enc.writeComponent(cal.Component)
	if enc.err != nil {
		return enc.err
	}
	return enc.w.Flush()
}

// propertyOrder fixes the emission order of a VEVENT/VTODO/VJOURNAL's core
// properties so that output is stable and matches what most servers and
// clients expect to see first (UID, DTSTAMP, then the rest). Properties not
// named here are emitted afterward, sorted by name for determinism.
var propertyOrder = []string{
	PropUID, PropDtstamp, PropDtstart, PropDtend, PropDuration, PropDue,
	PropCompleted, PropSummary, PropDescription, PropLocation, PropStatus,
	PropTransp, PropClass, PropPriority, PropSequence, PropRrule,
}

func (enc *Encoder) writeComponent(c *Component) {
	enc.writeLine("BEGIN", nil, c.Name)

	seen := make(map[string]bool, len(propertyOrder))
	for _, name := range propertyOrder {
		for _, p := range c.Props.All(name) {
			enc.writeProp(p)
		}
		seen[name] = true
	}

	var rest []string
	for name := range c.Props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		for _, p := range c.Props.All(name) {
			enc.writeProp(p)
		}
	}

	for _, child := range c.Children {
		enc.writeComponent(child)
	}

	enc.writeLine("END", nil, c.Name)
}

func (enc *Encoder) writeProp(p Prop) {
	var sb strings.Builder
	sb.WriteString(p.Name)

	var pnames []string
	for name := range p.Params {
		pnames = append(pnames, name)
	}
	sort.Strings(pnames)
	for _, name := range pnames {
		sb.WriteByte(';')
		sb.WriteString(name)
		sb.WriteByte('=')
		for i, v := range p.Params[name] {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(encodeParamValue(v))
		}
	}

	sb.WriteByte(':')
	sb.WriteString(p.Value)

	enc.writeFolded(sb.String())
}

func (enc *Encoder) writeLine(name string, params Params, value string) {
	enc.writeProp(Prop{Name: name, Params: params, Value: value})
}

// writeFolded writes a single logical content line, folding it at 75-octet
// boundaries as RFC 5545 section 3.1 requires.
func (enc *Encoder) writeFolded(line string) {
	if enc.err != nil {
		return
	}

	b := []byte(line)
	first := true
	for len(b) > 0 {
		limit := maxLineOctets
		if !first {
			limit--
		}
		n := limit
		if n > len(b) {
			n = len(b)
		}
		// Never fold in the middle of a UTF-8 sequence.
		for n > 0 && n < len(b) && isUTF8Continuation(b[n]) {
			n--
		}

		if !first {
			if _, err := enc.w.WriteString(" "); err != nil {
				enc.err = err
				return
			}
		}
		if _, err := enc.w.Write(b[:n]); err != nil {
			enc.err = err
			return
		}
		if _, err := enc.w.WriteString("\r\n"); err != nil {
			enc.err = err
			return
		}

		b = b[n:]
		first = false
	}
}

func isUTF8Continuation(b byte) bool {
	return b&0xC0 == 0x80
}

func encodeParamValue(v string) string {
	if strings.ContainsAny(v, ";:,") {
		return `"` + v + `"`
	}
	return v
}

// escapeText escapes a TEXT value per RFC 5545 section 3.3.11: backslash,
// semicolon and comma are backslash-escaped, newlines become "\n".
func escapeText(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\', ';', ',':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			// dropped; \r\n sequences normalize to \n
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// unescapeText reverses escapeText.
func unescapeText(s string) string {
	var sb strings.Builder
	esc := false
	for _, r := range s {
		if esc {
			switch r {
			case 'n', 'N':
				sb.WriteByte('\n')
			case '\\', ';', ',':
				sb.WriteRune(r)
			default:
				sb.WriteRune(r)
			}
			esc = false
			continue
		}
		if r == '\\' {
			esc = true
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
