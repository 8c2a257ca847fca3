package ical

import (
	"bytes"
	"fmt"
	"io"
	"mime"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// NewDecoderForContentType wraps NewDecoder with a best-effort transcode to
// UTF-8 when the calendar-data body was served under a Content-Type naming a
// non-UTF-8 charset parameter. Most CalDAV servers serve UTF-8 regardless of
// what they declare, but some older Radicale/Baikal installs still emit
// ISO-8859-1 bodies for calendars created from legacy desktop clients; this
// keeps those round-trippable instead of surfacing mojibake or a decode
// error deep in the property parser.
func NewDecoderForContentType(contentType string, r io.Reader) (*Decoder, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["charset"] == "" || isUTF8Charset(params["charset"]) {
		return NewDecoder(r), nil
	}

	enc, name := charset.Lookup(params["charset"])
	if enc == nil {
		return nil, fmt.Errorf("ical: unrecognized charset %q", params["charset"])
	}
	_ = name

	return NewDecoder(transform.NewReader(r, enc.NewDecoder())), nil
}

func isUTF8Charset(name string) bool {
	switch name {
	case "", "utf-8", "UTF-8", "utf8":
		return true
	}
	return false
}

// sniffAndDecode builds a Decoder for a body with no Content-Type: it
// transcodes only when charset.DetermineEncoding is certain of a non-UTF-8
// encoding (e.g. from a BOM) and otherwise reads the body as UTF-8; an
// uncertain guess is ignored. Nothing in this module calls it.
func sniffAndDecode(body []byte) (*Decoder, error) {
	enc, name, certain := charset.DetermineEncoding(body, "text/calendar")
	if !certain || name == "utf-8" || name == "" {
		return NewDecoder(bytes.NewReader(body)), nil
	}
	return NewDecoder(transform.NewReader(bytes.NewReader(body), enc.NewDecoder())), nil
}
