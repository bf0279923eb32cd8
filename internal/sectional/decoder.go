package sectional

import (
	"errors"
	"io"
	"strings"

	"github.com/verte-zerg/sectionals/internal/model"
)

// Grouping is the collection scope currently open in a document.
type Grouping int

const (
	GroupRoot Grouping = iota
	GroupFastestSections
	GroupHorses
	GroupHorseSections
)

func (g Grouping) String() string {
	switch g {
	case GroupRoot:
		return "root"
	case GroupFastestSections:
		return "fastest_sections"
	case GroupHorses:
		return "horses"
	case GroupHorseSections:
		return "horse_sections"
	default:
		return "unknown"
	}
}

// Decoder turns one document event stream into a RaceSummary. A Decoder can be
// reused for consecutive documents but must not be shared between goroutines.
type Decoder struct {
	stack  []string
	groups []Grouping

	race    model.RaceSummary
	fastest model.FastestSectionSummary
	horse   model.HorseSummary
	section model.SectionSummary
	pair    PairBuffer

	offset     int64
	issues     []Issue
	issueCount int
	issueLimit int
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithIssueLimit caps how many coercion issues are retained per decode.
// A negative limit retains none.
func WithIssueLimit(n int) Option {
	return func(d *Decoder) {
		d.issueLimit = n
	}
}

// NewDecoder returns a Decoder ready for use.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{issueLimit: defaultIssueLimit}
	for _, opt := range opts {
		opt(d)
	}
	d.reset()
	return d
}

// Decode parses an XML document into a RaceSummary.
func Decode(r io.Reader) (model.RaceSummary, error) {
	return NewDecoder().Decode(NewXMLSource(r))
}

// DecodeReader parses an XML document with d.
func (d *Decoder) DecodeReader(r io.Reader) (model.RaceSummary, error) {
	return d.Decode(NewXMLSource(r))
}

// Decode consumes src to the end. Values that do not fit their field are skipped
// and reported through Issues; only tokenizer failures abort the decode.
func (d *Decoder) Decode(src EventSource) (model.RaceSummary, error) {
	d.reset()
	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.RaceSummary{}, err
		}
		d.offset = ev.Offset
		switch ev.Kind {
		case EventStart:
			d.start(ev.Name, ev.Attrs)
		case EventText:
			d.text(ev.Text)
		case EventEnd:
			d.end()
		case EventEmpty:
			d.empty(ev.Name, ev.Attrs)
		}
	}
	return d.race, nil
}

// Issues returns the coercion failures retained from the last Decode.
func (d *Decoder) Issues() []Issue {
	return d.issues
}

// IssueCount returns the number of coercion failures of the last Decode,
// including those beyond the retention limit.
func (d *Decoder) IssueCount() int {
	return d.issueCount
}

func (d *Decoder) reset() {
	d.stack = d.stack[:0]
	d.groups = append(d.groups[:0], GroupRoot)
	d.race = model.NewRaceSummary()
	d.fastest = model.FastestSectionSummary{}
	d.horse = model.NewHorseSummary()
	d.section = model.SectionSummary{}
	d.pair.Reset()
	d.offset = -1
	d.issues = nil
	d.issueCount = 0
}

func (d *Decoder) start(name string, attrs []Attr) {
	d.stack = append(d.stack, name)
	d.enterGrouping(name)
	d.applyAttrs(name, attrs)
}

// empty handles a self-closing tag. Only its attributes are applied: it opens no
// scope and commits nothing.
func (d *Decoder) empty(name string, attrs []Attr) {
	d.stack = append(d.stack, name)
	d.applyAttrs(name, attrs)
	d.stack = d.stack[:len(d.stack)-1]
}

// applyAttrs writes attributes to the record in scope. A Time attribute, in any
// casing, names the value of the tag that carries it.
func (d *Decoder) applyAttrs(name string, attrs []Attr) {
	target := d.target()
	for _, a := range attrs {
		key := a.Name
		if strings.EqualFold(key, TagTime) {
			key = name
		}
		d.apply(target, key, a.Value)
	}
}

func (d *Decoder) text(text string) {
	top := d.top()
	switch top {
	case "":
		return
	case TagItem1:
		if err := d.pair.SetItem1(text); err != nil {
			d.report(top, text, err)
		}
		return
	case TagItem2:
		if err := d.pair.SetItem2(text); err != nil {
			d.report(top, text, err)
		}
		return
	}
	d.apply(d.target(), top, text)
}

func (d *Decoder) end() {
	if len(d.stack) == 0 {
		return
	}
	name := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	parent := d.top()

	switch {
	case name == TagSectionSummary:
		if parent == TagFastestSections {
			d.race.FastestSections = append(d.race.FastestSections, d.fastest)
			d.fastest = model.FastestSectionSummary{}
		} else {
			d.horse.Sections = append(d.horse.Sections, d.section)
			d.section = model.SectionSummary{}
		}
	case name == TagHorseSummary:
		d.race.Horses = append(d.race.Horses, d.horse)
		d.horse = model.NewHorseSummary()
	case isTupleTag(name):
		p := d.pair.Take()
		if parent == TagSpeeds || parent == TagRanks {
			if err := AppendPair(&d.horse, parent, p); err != nil {
				d.report(name, "", err)
			}
		}
	case name == TagFastestSections || name == TagHorses || name == TagSections:
		if len(d.groups) > 1 {
			d.groups = d.groups[:len(d.groups)-1]
		}
	}
}

// enterGrouping pushes the scope opened by a grouping tag. Sections only opens a
// horse timeline inside Horses; elsewhere it keeps the enclosing scope.
func (d *Decoder) enterGrouping(name string) {
	current := d.grouping()
	switch name {
	case TagFastestSections:
		d.groups = append(d.groups, GroupFastestSections)
	case TagHorses:
		d.groups = append(d.groups, GroupHorses)
	case TagSections:
		if current == GroupHorses || current == GroupHorseSections {
			d.groups = append(d.groups, GroupHorseSections)
		} else {
			d.groups = append(d.groups, current)
		}
	}
}

func (d *Decoder) grouping() Grouping {
	return d.groups[len(d.groups)-1]
}

func (d *Decoder) top() string {
	if len(d.stack) == 0 {
		return ""
	}
	return d.stack[len(d.stack)-1]
}

func (d *Decoder) target() Record {
	switch d.grouping() {
	case GroupFastestSections:
		return FastestSectionFields(&d.fastest)
	case GroupHorses:
		return HorseFields(&d.horse)
	case GroupHorseSections:
		return SectionFields(&d.section)
	default:
		return RaceFields(&d.race)
	}
}

// apply writes text only when the record in scope maps the field; stray tags are ignored.
func (d *Decoder) apply(target Record, field, text string) {
	if _, ok := target.Read(field); !ok {
		return
	}
	if err := target.Write(field, text); err != nil {
		d.report(field, text, err)
	}
}

func (d *Decoder) report(field, value string, err error) {
	d.issueCount++
	if d.issueLimit < 0 || len(d.issues) >= d.issueLimit {
		return
	}
	d.issues = append(d.issues, Issue{
		Path:   "/" + strings.Join(d.stack, "/"),
		Field:  field,
		Value:  value,
		Offset: d.offset,
		Err:    err,
	})
}
