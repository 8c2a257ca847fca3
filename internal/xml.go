package internal

import (
	"encoding/xml"
	"fmt"
	"io"
)

// RawXMLValue is a raw XML value. It implements xml.Unmarshaler and
// xml.Marshaler and can be used to delay XML decoding or precompute an XML
// encoding.
type RawXMLValue struct {
	tok      xml.Token // guaranteed not to be xml.EndElement
	children []RawXMLValue
}

// UnmarshalXML implements xml.Unmarshaler.
func (val *RawXMLValue) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	val.tok = start
	val.children = nil

	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			child := RawXMLValue{}
			if err := child.UnmarshalXML(d, tok); err != nil {
				return err
			}
			val.children = append(val.children, child)
		case xml.EndElement:
			return nil
		default:
			val.children = append(val.children, RawXMLValue{tok: xml.CopyToken(tok)})
		}
	}
}

// MarshalXML implements xml.Marshaler.
func (val *RawXMLValue) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	switch tok := val.tok.(type) {
	case xml.StartElement:
		if err := e.EncodeToken(tok); err != nil {
			return err
		}
		for _, child := range val.children {
			// TODO: find a sensible value for the start argument?
			if err := child.MarshalXML(e, xml.StartElement{}); err != nil {
				return err
			}
		}
		return e.EncodeToken(tok.End())
	case xml.EndElement:
		panic("unexpected end element")
	default:
		return e.EncodeToken(tok)
	}
}

var _ xml.Marshaler = (*RawXMLValue)(nil)
var _ xml.Unmarshaler = (*RawXMLValue)(nil)

// XMLName returns the element name for val, if val wraps a start element.
func (val *RawXMLValue) XMLName() (xml.Name, bool) {
	start, ok := val.tok.(xml.StartElement)
	if !ok {
		return xml.Name{}, false
	}
	return start.Name, true
}

// Decode decodes the raw XML value into v, re-streaming it through an
// xml.Decoder built on top of TokenReader. This lets a single parsed
// multistatus body be decoded into many different typed structs (Prop.Get
// followed by Decode), without re-parsing the underlying bytes.
func (val *RawXMLValue) Decode(v interface{}) error {
	dec := xml.NewTokenDecoder(val.TokenReader())
	return dec.Decode(v)
}

// NewRawXMLElement creates a RawXMLValue wrapping a start element with the
// given name, attributes and children.
func NewRawXMLElement(name xml.Name, attr []xml.Attr, children []RawXMLValue) *RawXMLValue {
	return &RawXMLValue{
		tok:      xml.StartElement{Name: name, Attr: attr},
		children: children,
	}
}

// EncodeRawXMLElement encodes v into a RawXMLValue by round-tripping it
// through the standard XML marshaler, then re-parsing the result. Used to
// build response propstat bodies from typed Go values (see Response.EncodeProp).
func EncodeRawXMLElement(v interface{}) (*RawXMLValue, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}

	var raw RawXMLValue
	if err := xml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}

	return &raw, nil
}

// valueXMLName determines the XML element name a Go value decodes/encodes
// as, by marshaling it and inspecting the resulting start element. This
// mirrors how encoding/xml itself derives a name from a struct's XMLName
// field or type name, without requiring callers to pass the name alongside
// every value.
func valueXMLName(v interface{}) (xml.Name, error) {
	raw, err := EncodeRawXMLElement(v)
	if err != nil {
		return xml.Name{}, err
	}
	name, ok := raw.XMLName()
	if !ok {
		return xml.Name{}, fmt.Errorf("webdav: failed to determine XML name for %T", v)
	}
	return name, nil
}

// TokenReader returns a stream of tokens for the XML value.
func (val *RawXMLValue) TokenReader() xml.TokenReader {
	return &rawXMLValueReader{val: val}
}

type rawXMLValueReader struct {
	val         *RawXMLValue
	start, end  bool
	child       int
	childReader xml.TokenReader
}

func (tr *rawXMLValueReader) Token() (xml.Token, error) {
	if tr.end {
		return nil, io.EOF
	}

	start, ok := tr.val.tok.(xml.StartElement)
	if !ok {
		tr.end = true
		return tr.val.tok, nil
	}

	if !tr.start {
		tr.start = true
		return start, nil
	}

	for tr.child < len(tr.val.children) {
		if tr.childReader == nil {
			tr.childReader = tr.val.children[tr.child].TokenReader()
		}

		tok, err := tr.childReader.Token()
		if err == io.EOF {
			tr.childReader = nil
			tr.child++
		} else {
			return tok, err
		}
	}

	tr.end = true
	return start.End(), nil
}
