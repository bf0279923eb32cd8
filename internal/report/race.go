package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/verte-zerg/sectionals/internal/model"
)

var horseHeaders = []string{"Pos", "Bib", "Horse", "Draw", "Finish", "Margin", "Top speed", "Dist", "Sections", "State"}

// horseRightAlign marks the numeric columns of the horse table.
var horseRightAlign = map[int]bool{0: true, 1: true, 3: true, 5: true, 6: true, 7: true, 8: true}

// WriteRace writes a race header followed by a table of its horses.
func WriteRace(w io.Writer, race model.RaceSummary) error {
	title := fmt.Sprintf("%s  %s  R%d  %s", race.EventDate.Format("2006-01-02"), race.CourseName, race.RaceNumber, race.RaceName)
	lines := []string{
		strings.TrimSpace(title),
		fmt.Sprintf("Race code %d  Meeting %d  Track %s (%s)  Rail %s  Finish %s",
			race.RaceCode, race.MeetingCode, orDash(race.TrackName), orDash(race.TrackCondition),
			orDash(race.RailPosition), race.FinishTime),
	}
	if len(race.FastestSections) > 0 {
		parts := make([]string, 0, len(race.FastestSections))
		for _, fs := range race.FastestSections {
			parts = append(parts, fmt.Sprintf("%dm %s", fs.CumulatedDistance, fs.SectionTime))
		}
		lines = append(lines, "Fastest sections: "+strings.Join(parts, ", "))
	}
	lines = append(lines, "")

	if len(race.Horses) == 0 {
		lines = append(lines, "No horses.")
	} else {
		lines = append(lines, FormatTable(horseHeaders, horseRows(race.Horses), horseRightAlign)...)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func horseRows(horses []model.HorseSummary) [][]string {
	rows := make([][]string, 0, len(horses))
	for _, h := range horses {
		state := h.ResultState
		if h.ResultSubState != "" {
			state += "/" + h.ResultSubState
		}
		rows = append(rows, []string{
			strconv.Itoa(int(h.FinalRank)),
			strconv.Itoa(int(h.Bib)),
			h.Name,
			strconv.Itoa(int(h.DrawNumber)),
			h.FinishTime.String(),
			h.OfficialMargin.String(),
			h.TopSpeed.StringFixed(2),
			strconv.Itoa(int(h.DistanceTravelled)),
			strconv.Itoa(len(h.Sections)),
			orDash(state),
		})
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
