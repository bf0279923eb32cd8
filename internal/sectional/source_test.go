package sectional

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestXMLSourceEvents(t *testing.T) {
	src := NewXMLSource(strings.NewReader("<A x=\"1\">\n  <B/>  hi </A>"))
	var kinds []string
	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		switch ev.Kind {
		case EventText:
			kinds = append(kinds, "text:"+ev.Text)
		default:
			kinds = append(kinds, ev.Kind.String()+":"+ev.Name)
		}
	}
	expected := []string{"start:A", "empty:B", "text:hi", "end:A"}
	if strings.Join(kinds, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected %v, got %v", expected, kinds)
	}
}

func TestXMLSourceLatin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><RaceSummary><CourseName>Chantilly \xe9t\xe9</CourseName></RaceSummary>"
	race, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if race.CourseName != "Chantilly été" {
		t.Fatalf("unexpected course name %q", race.CourseName)
	}
}

func TestXMLSourceUnsupportedCharset(t *testing.T) {
	_, err := Decode(strings.NewReader(`<?xml version="1.0" encoding="koi8-r"?><RaceSummary/>`))
	var serr *SyntaxError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}
