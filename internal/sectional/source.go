package sectional

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// EventKind enumerates the events the decoder reacts to.
type EventKind int

const (
	EventStart EventKind = iota
	EventEnd
	EventText
	EventEmpty
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	case EventText:
		return "text"
	case EventEmpty:
		return "empty"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Attr is a single attribute of a start or self-closing tag.
type Attr struct {
	Name  string
	Value string
}

// Event is one item of a document event stream. Offset is the byte offset in the
// input where the event began, or -1 when unknown.
type Event struct {
	Kind   EventKind
	Name   string
	Attrs  []Attr
	Text   string
	Offset int64
}

// EventSource yields events until it returns io.EOF.
type EventSource interface {
	Next() (Event, error)
}

// SyntaxError is a tokenizer failure. The document cannot be decoded past Offset.
type SyntaxError struct {
	Offset int64
	Line   int
	Err    error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed xml at byte %d (line %d): %v", e.Offset, e.Line, e.Err)
	}
	return fmt.Sprintf("malformed xml at byte %d: %v", e.Offset, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

type xmlSource struct {
	dec *xml.Decoder

	peeked     bool
	peekTok    xml.Token
	peekErr    error
	peekOffset int64
}

// NewXMLSource tokenizes an XML document. A self-closing tag produces a single
// EventEmpty. Surrounding whitespace is trimmed from text and whitespace-only
// text is dropped.
func NewXMLSource(r io.Reader) EventSource {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader
	return &xmlSource{dec: dec}
}

func (s *xmlSource) Next() (Event, error) {
	for {
		offset, tok, err := s.token()
		if errors.Is(err, io.EOF) {
			return Event{}, io.EOF
		}
		if err != nil {
			serr := &SyntaxError{Offset: s.dec.InputOffset(), Err: err}
			var xerr *xml.SyntaxError
			if errors.As(err, &xerr) {
				serr.Line = xerr.Line
			}
			return Event{}, serr
		}
		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make([]Attr, 0, len(t.Attr))
			for _, a := range t.Attr {
				attrs = append(attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			kind := EventStart
			if s.selfClosing(t.Name) {
				kind = EventEmpty
			}
			return Event{Kind: kind, Name: t.Name.Local, Attrs: attrs, Offset: offset}, nil
		case xml.EndElement:
			return Event{Kind: EventEnd, Name: t.Name.Local, Offset: offset}, nil
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			return Event{Kind: EventText, Text: text, Offset: offset}, nil
		}
	}
}

func (s *xmlSource) token() (int64, xml.Token, error) {
	if s.peeked {
		s.peeked = false
		tok, err := s.peekTok, s.peekErr
		s.peekTok, s.peekErr = nil, nil
		return s.peekOffset, tok, err
	}
	offset := s.dec.InputOffset()
	tok, err := s.dec.Token()
	return offset, tok, err
}

// selfClosing reports whether the start tag just read was written as <X/>.
// encoding/xml synthesizes the matching end element without consuming input,
// so the offset does not move. Any other token is kept for the next call.
func (s *xmlSource) selfClosing(name xml.Name) bool {
	before := s.dec.InputOffset()
	tok, err := s.dec.Token()
	if err == nil {
		if end, ok := tok.(xml.EndElement); ok && end.Name == name && s.dec.InputOffset() == before {
			return true
		}
		tok = xml.CopyToken(tok)
	}
	s.peeked = true
	s.peekTok = tok
	s.peekErr = err
	s.peekOffset = before
	return false
}

// charsetReader covers the single-byte encodings some timing exports declare.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}

type sliceSource struct {
	events []Event
	pos    int
}

// NewSliceSource replays a fixed list of events.
func NewSliceSource(events []Event) EventSource {
	return &sliceSource{events: events}
}

func (s *sliceSource) Next() (Event, error) {
	if s.pos >= len(s.events) {
		return Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}
