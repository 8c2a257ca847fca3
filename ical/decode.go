package ical

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Decoder reads a stream of VCALENDAR objects from an iCalendar document, RFC
// 5545 section 3.1. Multiple VCALENDAR objects may appear back to back in
// the same stream (as with a calendar-multiget REPORT response body that
// concatenates several calendar-data elements' worth of text), so Decode may
// be called repeatedly until it returns io.EOF.
type Decoder struct {
	lines *lineReader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{lines: newLineReader(r)}
}

// ParseAllEvents decodes the single VCALENDAR in r and returns its VEVENT
// components directly, a convenience projection over Decode for callers
// that only care about events and don't need VTODOs, VJOURNALs or
// VTIMEZONEs.
func ParseAllEvents(r io.Reader) ([]*Event, error) {
	cal, err := NewDecoder(r).Decode()
	if err != nil {
		return nil, err
	}
	return cal.Events(), nil
}

// ParseWithMethod decodes the single VCALENDAR in r and additionally
// extracts its top-level METHOD property (RFC 5545 section 3.7.2), used by
// iTIP-aware callers to distinguish a REQUEST/REPLY/CANCEL invite body from
// a plain published calendar. method is "" when no METHOD property is
// present.
func ParseWithMethod(r io.Reader) (method string, events []*Event, err error) {
	cal, err := NewDecoder(r).Decode()
	if err != nil {
		return "", nil, err
	}
	method, _ = cal.Component.Props.Text(PropMethod)
	return method, cal.Events(), nil
}

// Decode reads the next VCALENDAR from the stream.
func (dec *Decoder) Decode() (*Calendar, error) {
	comp, err := dec.readComponent()
	if err != nil {
		return nil, err
	}
	if comp.Name != CompCalendar {
		return nil, &ParseError{Line: dec.lines.lineNo, Msg: fmt.Sprintf("expected BEGIN:VCALENDAR, got BEGIN:%s", comp.Name)}
	}
	return &Calendar{Component: comp}, nil
}

func (dec *Decoder) readComponent() (*Component, error) {
	line, err := dec.lines.next()
	if err != nil {
		return nil, err
	}

	cl, err := parseContentLine(dec.lines.lineNo, line)
	if err != nil {
		return nil, err
	}
	if cl.Name != "BEGIN" {
		return nil, &ParseError{Line: dec.lines.lineNo, Msg: fmt.Sprintf("expected BEGIN, got %s", cl.Name)}
	}

	comp := NewComponent(cl.Value)

	for {
		line, err := dec.lines.next()
		if err != nil {
			if err == io.EOF {
				return nil, &ParseError{Line: dec.lines.lineNo, Msg: fmt.Sprintf("unexpected EOF in component %s", comp.Name)}
			}
			return nil, err
		}

		cl, err := parseContentLine(dec.lines.lineNo, line)
		if err != nil {
			return nil, err
		}

		switch cl.Name {
		case "BEGIN":
			dec.lines.pushBack(line)
			child, err := dec.readComponent()
			if err != nil {
				return nil, err
			}
			comp.Children = append(comp.Children, child)
		case "END":
			if cl.Value != comp.Name {
				return nil, &ParseError{Line: dec.lines.lineNo, Msg: fmt.Sprintf("expected END:%s, got END:%s", comp.Name, cl.Value)}
			}
			return comp, nil
		default:
			comp.Props.Add(Prop{Name: cl.Name, Params: cl.Params, Value: cl.Value})
		}
	}
}

type contentLine struct {
	Name   string
	Params Params
	Value  string
}

// parseContentLine parses a single unfolded content line: a NAME, optional
// `;param=value` pairs, a `:`, and a VALUE, per RFC 5545 section 3.1.
//
// This is a hand-written scanner, not a regexp: a content line's grammar
// (quoted-string parameter values may contain `;`, `:`, `,`) is not safely
// expressible as a single linear-time regex without risking catastrophic
// backtracking on adversarial input, so it's walked byte by byte instead.
func parseContentLine(lineNo int, line string) (*contentLine, error) {
	i := strings.IndexAny(line, ";:")
	if i < 0 {
		return nil, &ParseError{Line: lineNo, Msg: "missing ':' in content line"}
	}

	name := strings.ToUpper(line[:i])
	if name == "" {
		return nil, &ParseError{Line: lineNo, Msg: "empty property name"}
	}

	params := Params{}
	rest := line[i:]
	for strings.HasPrefix(rest, ";") {
		rest = rest[1:]

		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			return nil, &ParseError{Line: lineNo, Property: name, Msg: "malformed parameter"}
		}
		pname := strings.ToUpper(rest[:eq])
		rest = rest[eq+1:]

		var values []string
		for {
			var v string
			var err error
			v, rest, err = scanParamValue(rest)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Property: name, Msg: err.Error()}
			}
			values = append(values, v)
			if strings.HasPrefix(rest, ",") {
				rest = rest[1:]
				continue
			}
			break
		}
		params[pname] = values
	}

	if !strings.HasPrefix(rest, ":") {
		return nil, &ParseError{Line: lineNo, Property: name, Msg: "malformed parameter list"}
	}
	value := rest[1:]

	return &contentLine{Name: name, Params: params, Value: value}, nil
}

// scanParamValue scans one (possibly quoted) parameter value off the front
// of s and returns it along with the remainder of s.
func scanParamValue(s string) (value, rest string, err error) {
	if strings.HasPrefix(s, `"`) {
		end := strings.IndexByte(s[1:], '"')
		if end < 0 {
			return "", "", fmt.Errorf("unterminated quoted parameter value")
		}
		return s[1 : 1+end], s[1+end+1:], nil
	}

	end := strings.IndexAny(s, ";:,")
	if end < 0 {
		return s, "", nil
	}
	return s[:end], s[end:], nil
}

// lineReader unfolds CRLF/LF-terminated, space/tab-continued lines per RFC
// 5545 section 3.1 ("a long line can be split between any two characters by
// inserting a CRLF immediately followed by a single linear white-space
// character"), and supports a one-line pushback so readComponent can
// recognize a nested BEGIN without consuming it twice.
type lineReader struct {
	br       *bufio.Reader
	lineNo   int
	buffered string
	hasBuf   bool
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{br: bufio.NewReaderSize(r, 4096)}
}

func (lr *lineReader) pushBack(line string) {
	lr.buffered = line
	lr.hasBuf = true
	lr.lineNo--
}

// next returns the next fully unfolded logical line, with its trailing
// CRLF/LF stripped.
func (lr *lineReader) next() (string, error) {
	if lr.hasBuf {
		lr.hasBuf = false
		lr.lineNo++
		return lr.buffered, nil
	}

	line, err := lr.readRawLine()
	if err != nil {
		return "", err
	}
	lr.lineNo++

	var sb strings.Builder
	sb.WriteString(line)

	for {
		peek, err := lr.br.Peek(1)
		if err != nil {
			break
		}
		if peek[0] != ' ' && peek[0] != '\t' {
			break
		}
		cont, err := lr.readRawLine()
		if err != nil {
			break
		}
		sb.WriteString(cont[1:])
	}

	return sb.String(), nil
}

func (lr *lineReader) readRawLine() (string, error) {
	line, err := lr.br.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}
