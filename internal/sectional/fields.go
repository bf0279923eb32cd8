package sectional

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/verte-zerg/sectionals/internal/model"
)

// ErrUnknownField is returned when a record kind has no field with the given name.
var ErrUnknownField = errors.New("unknown field")

// Kind names a record kind that owns a field registry.
type Kind string

// Record kinds.
const (
	KindRace           Kind = "race"
	KindHorse          Kind = "horse"
	KindSection        Kind = "section"
	KindFastestSection Kind = "fastest_section"
)

// Record reads and writes fields of one record by tag name.
type Record interface {
	// Read returns the canonical text of a field, or false when the field is not mapped.
	Read(field string) (string, bool)
	// Write parses text into the field. The field keeps its value on error.
	Write(field, text string) error
}

// FieldError reports a value that could not be written to a field.
type FieldError struct {
	Kind  Kind
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s.%s: cannot set %q: %v", e.Kind, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

type field[T any] struct {
	get func(*T) string
	set func(*T, string) error
}

type fieldTable[T any] map[string]field[T]

type record[T any] struct {
	kind  Kind
	table fieldTable[T]
	v     *T
}

func (r record[T]) Read(name string) (string, bool) {
	f, ok := r.table[name]
	if !ok {
		return "", false
	}
	return f.get(r.v), true
}

func (r record[T]) Write(name, text string) error {
	f, ok := r.table[name]
	if !ok {
		return &FieldError{Kind: r.kind, Field: name, Value: text, Err: ErrUnknownField}
	}
	if err := f.set(r.v, text); err != nil {
		return &FieldError{Kind: r.kind, Field: name, Value: text, Err: err}
	}
	return nil
}

// RaceFields exposes the race-level fields of r.
func RaceFields(r *model.RaceSummary) Record {
	return record[model.RaceSummary]{kind: KindRace, table: raceTable, v: r}
}

// HorseFields exposes the scalar fields of h.
func HorseFields(h *model.HorseSummary) Record {
	return record[model.HorseSummary]{kind: KindHorse, table: horseTable, v: h}
}

// SectionFields exposes the fields of a horse section.
func SectionFields(s *model.SectionSummary) Record {
	return record[model.SectionSummary]{kind: KindSection, table: sectionTable, v: s}
}

// FastestSectionFields exposes the fields of a race fastest section.
func FastestSectionFields(s *model.FastestSectionSummary) Record {
	return record[model.FastestSectionSummary]{kind: KindFastestSection, table: fastestTable, v: s}
}

// Fields lists the mapped field names of a record kind in sorted order.
func Fields(kind Kind) []string {
	switch kind {
	case KindRace:
		return tableKeys(raceTable)
	case KindHorse:
		return tableKeys(horseTable)
	case KindSection:
		return tableKeys(sectionTable)
	case KindFastestSection:
		return tableKeys(fastestTable)
	default:
		return nil
	}
}

func tableKeys[T any](table fieldTable[T]) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var raceTable = fieldTable[model.RaceSummary]{
	TagEventDate:      dateField(func(r *model.RaceSummary) *time.Time { return &r.EventDate }),
	TagMeetingCode:    int32Field(func(r *model.RaceSummary) *int32 { return &r.MeetingCode }),
	TagRaceCode:       int32Field(func(r *model.RaceSummary) *int32 { return &r.RaceCode }),
	TagEventName:      stringField(func(r *model.RaceSummary) *string { return &r.EventName }),
	TagCourseName:     stringField(func(r *model.RaceSummary) *string { return &r.CourseName }),
	TagRaceName:       stringField(func(r *model.RaceSummary) *string { return &r.RaceName }),
	TagFinishTime:     clockField(func(r *model.RaceSummary) *model.Clock { return &r.FinishTime }),
	TagTrackName:      stringField(func(r *model.RaceSummary) *string { return &r.TrackName }),
	TagTrackCondition: stringField(func(r *model.RaceSummary) *string { return &r.TrackCondition }),
	TagRailPosition:   stringField(func(r *model.RaceSummary) *string { return &r.RailPosition }),
}

var horseTable = fieldTable[model.HorseSummary]{
	TagName:                  stringField(func(h *model.HorseSummary) *string { return &h.Name }),
	TagHorseCode:             int32Field(func(h *model.HorseSummary) *int32 { return &h.Code }),
	TagBib:                   int32Field(func(h *model.HorseSummary) *int32 { return &h.Bib }),
	TagDrawNumber:            int32Field(func(h *model.HorseSummary) *int32 { return &h.DrawNumber }),
	TagDistanceTravelled:     int32Field(func(h *model.HorseSummary) *int32 { return &h.DistanceTravelled }),
	TagDistanceDifference:    int32Field(func(h *model.HorseSummary) *int32 { return &h.DistanceDifference }),
	TagFinalRank:             uint8Field(func(h *model.HorseSummary) *uint8 { return &h.FinalRank }),
	TagIsFinishTimeOfficial:  boolField(func(h *model.HorseSummary) *bool { return &h.TimeOfficial }),
	TagOfficialMarginDecimal: decimalField(func(h *model.HorseSummary) *decimal.Decimal { return &h.OfficialMargin }),
	TagFastestSectionTime:    clockField(func(h *model.HorseSummary) *model.Clock { return &h.FastestSectionTime }),
	TagFastestSectionIndex:   uint8Field(func(h *model.HorseSummary) *uint8 { return &h.FastestSectionIndex }),
	TagTopSpeed:              decoratedDecimalField(func(h *model.HorseSummary) *decimal.Decimal { return &h.TopSpeed }),
	TagTopSpeedSectionIndex:  uint8Field(func(h *model.HorseSummary) *uint8 { return &h.TopSpeedIndex }),
	TagFinishTime:            clockField(func(h *model.HorseSummary) *model.Clock { return &h.FinishTime }),
	TagResultState:           stringField(func(h *model.HorseSummary) *string { return &h.ResultState }),
	TagResultSubState:        stringField(func(h *model.HorseSummary) *string { return &h.ResultSubState }),
}

var sectionTable = fieldTable[model.SectionSummary]{
	TagCumulatedDistance:     int32Field(func(s *model.SectionSummary) *int32 { return &s.CumulatedDistance }),
	TagMarginDecimal:         decimalField(func(s *model.SectionSummary) *decimal.Decimal { return &s.MarginDecimal }),
	TagRealDistance:          decimalField(func(s *model.SectionSummary) *decimal.Decimal { return &s.RealDistance }),
	TagRank:                  int32Field(func(s *model.SectionSummary) *int32 { return &s.Rank }),
	TagIntermediateTime:      clockField(func(s *model.SectionSummary) *model.Clock { return &s.IntermediateTime }),
	TagSectionTime:           clockField(func(s *model.SectionSummary) *model.Clock { return &s.SectionTime }),
	TagAvgSpeed:              decimalField(func(s *model.SectionSummary) *decimal.Decimal { return &s.AvgSpeed }),
	TagTopSpeed:              decimalField(func(s *model.SectionSummary) *decimal.Decimal { return &s.TopSpeed }),
	TagAverageStrideFreq:     decimalField(func(s *model.SectionSummary) *decimal.Decimal { return &s.AvgStrideFrequency }),
	TagAverageStrideLength:   decimalField(func(s *model.SectionSummary) *decimal.Decimal { return &s.AvgStrideLength }),
	TagAverageDistanceToRail: decimalField(func(s *model.SectionSummary) *decimal.Decimal { return &s.AvgDistanceToRail }),
}

var fastestTable = fieldTable[model.FastestSectionSummary]{
	TagCumulatedDistance: int32Field(func(s *model.FastestSectionSummary) *int32 { return &s.CumulatedDistance }),
	TagIntermediateTime:  clockField(func(s *model.FastestSectionSummary) *model.Clock { return &s.IntermediateTime }),
	TagSectionTime:       clockField(func(s *model.FastestSectionSummary) *model.Clock { return &s.SectionTime }),
}

func stringField[T any](ptr func(*T) *string) field[T] {
	return field[T]{
		get: func(v *T) string { return *ptr(v) },
		set: func(v *T, text string) error {
			*ptr(v) = text
			return nil
		},
	}
}

func int32Field[T any](ptr func(*T) *int32) field[T] {
	return field[T]{
		get: func(v *T) string { return strconv.FormatInt(int64(*ptr(v)), 10) },
		set: func(v *T, text string) error {
			n, err := parseInt32(text)
			if err != nil {
				return err
			}
			*ptr(v) = n
			return nil
		},
	}
}

func uint8Field[T any](ptr func(*T) *uint8) field[T] {
	return field[T]{
		get: func(v *T) string { return strconv.FormatUint(uint64(*ptr(v)), 10) },
		set: func(v *T, text string) error {
			n, err := parseUint8(text)
			if err != nil {
				return err
			}
			*ptr(v) = n
			return nil
		},
	}
}

func boolField[T any](ptr func(*T) *bool) field[T] {
	return field[T]{
		get: func(v *T) string { return strconv.FormatBool(*ptr(v)) },
		set: func(v *T, text string) error {
			b, err := strconv.ParseBool(text)
			if err != nil {
				return err
			}
			*ptr(v) = b
			return nil
		},
	}
}

func decimalField[T any](ptr func(*T) *decimal.Decimal) field[T] {
	return field[T]{
		get: func(v *T) string { return ptr(v).String() },
		set: func(v *T, text string) error {
			d, err := parseDecimal(text)
			if err != nil {
				return err
			}
			*ptr(v) = d
			return nil
		},
	}
}

// decoratedDecimalField tolerates the same bracket annotations as clock fields.
func decoratedDecimalField[T any](ptr func(*T) *decimal.Decimal) field[T] {
	f := decimalField(ptr)
	set := f.set
	f.set = func(v *T, text string) error {
		return set(v, undecorate(text))
	}
	return f
}

func clockField[T any](ptr func(*T) *model.Clock) field[T] {
	return field[T]{
		get: func(v *T) string { return ptr(v).String() },
		set: func(v *T, text string) error {
			c, err := ParseClock(text)
			if err != nil {
				return err
			}
			*ptr(v) = c
			return nil
		},
	}
}

func dateField[T any](ptr func(*T) *time.Time) field[T] {
	return field[T]{
		get: func(v *T) string { return formatEventDate(*ptr(v)) },
		set: func(v *T, text string) error {
			d, err := parseEventDate(text)
			if err != nil {
				return err
			}
			*ptr(v) = d
			return nil
		},
	}
}
