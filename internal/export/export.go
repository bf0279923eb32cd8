// Package export flattens decoded races into CSV rows, one per horse.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"

	"github.com/verte-zerg/sectionals/internal/model"
	"github.com/verte-zerg/sectionals/internal/sectional"
)

const (
	placeholderRank = "0"
	placeholder     = "N/A"
	sectionGroups   = 3
)

type column struct {
	header string
	tag    string
}

var raceColumns = []column{
	{"event_date", sectional.TagEventDate},
	{"meeting_code", sectional.TagMeetingCode},
	{"race_number", ""},
	{"race_code", sectional.TagRaceCode},
	{"event_name", sectional.TagEventName},
	{"course_name", sectional.TagCourseName},
	{"race_name", sectional.TagRaceName},
	{"finish_time", sectional.TagFinishTime},
	{"track_name", sectional.TagTrackName},
	{"track_condition", sectional.TagTrackCondition},
	{"rail_position", sectional.TagRailPosition},
}

var horseColumns = []column{
	{"horse_name", sectional.TagName},
	{"horse_code", sectional.TagHorseCode},
	{"bib", sectional.TagBib},
	{"draw_number", sectional.TagDrawNumber},
	{"distance_travelled", sectional.TagDistanceTravelled},
	{"distance_difference", sectional.TagDistanceDifference},
	{"final_rank", sectional.TagFinalRank},
	{"time_official", sectional.TagIsFinishTimeOfficial},
	{"official_margin", sectional.TagOfficialMarginDecimal},
	{"fastest_section_time", sectional.TagFastestSectionTime},
	{"fastest_section_index", sectional.TagFastestSectionIndex},
	{"top_speed", sectional.TagTopSpeed},
	{"top_speed_index", sectional.TagTopSpeedSectionIndex},
	{"horse_finish_time", sectional.TagFinishTime},
	{"result_state", sectional.TagResultState},
	{"result_substate", sectional.TagResultSubState},
}

// sectionColumns are suffixed onto each last_N_ group prefix.
var sectionColumns = []column{
	{"rank", sectional.TagRank},
	{"section_time", sectional.TagSectionTime},
	{"total_time", sectional.TagIntermediateTime},
	{"real_distance", sectional.TagRealDistance},
	{"avg_speed", sectional.TagAvgSpeed},
	{"top_speed", sectional.TagTopSpeed},
	{"avg_stride_freq", sectional.TagAverageStrideFreq},
	{"average_stride_length", sectional.TagAverageStrideLength},
	{"avg_distance_rail", sectional.TagAverageDistanceToRail},
}

// groupPrefixes run from the earliest of the last three sections to the final one.
var groupPrefixes = []string{"last_600_", "last_400_", "last_200_"}

var columnCount = len(raceColumns) + len(horseColumns) + len(groupPrefixes)*len(sectionColumns) + 1

// Headers returns the CSV header row.
func Headers() []string {
	headers := make([]string, 0, columnCount)
	headers = append(headers, lo.Map(raceColumns, func(c column, _ int) string { return c.header })...)
	headers = append(headers, lo.Map(horseColumns, func(c column, _ int) string { return c.header })...)
	for _, prefix := range groupPrefixes {
		headers = append(headers, lo.Map(sectionColumns, func(c column, _ int) string { return prefix + c.header })...)
	}
	return append(headers, "total_distance")
}

// Rows returns one row per horse, in document order.
func Rows(race model.RaceSummary) [][]string {
	prefix := raceCells(race)
	return lo.Map(race.Horses, func(h model.HorseSummary, _ int) []string {
		return horseRow(prefix, h)
	})
}

func raceCells(race model.RaceSummary) []string {
	rec := sectional.RaceFields(&race)
	return lo.Map(raceColumns, func(c column, _ int) string {
		if c.tag == "" {
			return strconv.FormatInt(int64(race.RaceNumber), 10)
		}
		return read(rec, c.tag)
	})
}

func horseRow(prefix []string, h model.HorseSummary) []string {
	row := make([]string, 0, columnCount)
	row = append(row, prefix...)

	rec := sectional.HorseFields(&h)
	row = append(row, lo.Map(horseColumns, func(c column, _ int) string { return read(rec, c.tag) })...)

	last := h.Sections
	if len(last) > sectionGroups {
		last = last[len(last)-sectionGroups:]
	}
	for i := len(last); i < sectionGroups; i++ {
		row = append(row, placeholderRank)
		row = append(row, lo.RepeatBy(len(sectionColumns)-1, func(int) string { return placeholder })...)
	}
	for i := range last {
		rec := sectional.SectionFields(&last[i])
		row = append(row, lo.Map(sectionColumns, func(c column, _ int) string { return read(rec, c.tag) })...)
	}

	total := "0"
	if len(last) > 0 {
		total = strconv.FormatInt(int64(last[len(last)-1].CumulatedDistance), 10)
	}
	return append(row, total)
}

func read(rec sectional.Record, tag string) string {
	text, _ := rec.Read(tag)
	return text
}

// Writer writes races as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	if err := w.csv.Write(Headers()); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	return nil
}

// WriteRace writes one row per horse of race.
func (w *Writer) WriteRace(race model.RaceSummary) error {
	if err := w.csv.WriteAll(Rows(race)); err != nil {
		return fmt.Errorf("failed to write race %d: %w", race.RaceCode, err)
	}
	return nil
}

// Flush flushes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	w.csv.Flush()
	return w.csv.Error()
}
