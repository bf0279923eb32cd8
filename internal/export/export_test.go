package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/verte-zerg/sectionals/internal/model"
)

func TestHeadersLayout(t *testing.T) {
	headers := Headers()
	if len(headers) != 55 {
		t.Fatalf("expected 55 headers, got %d", len(headers))
	}
	checks := map[int]string{
		0:  "event_date",
		10: "rail_position",
		11: "horse_name",
		26: "result_substate",
		27: "last_600_rank",
		36: "last_400_rank",
		45: "last_200_rank",
		53: "last_200_avg_distance_rail",
		54: "total_distance",
	}
	for i, want := range checks {
		if headers[i] != want {
			t.Fatalf("expected %q at %d, got %q", want, i, headers[i])
		}
	}
}

func testRace() model.RaceSummary {
	race := model.NewRaceSummary()
	race.EventDate = time.Date(2023, 5, 14, 0, 0, 0, 0, time.UTC)
	race.RaceNumber = 7
	race.RaceCode = 88123
	race.CourseName = "Sha Tin"
	race.FinishTime = model.NewClock(0, 1, 9, 320)

	horse := model.NewHorseSummary()
	horse.Name = "Golden Sixty"
	horse.FinalRank = 1
	horse.TopSpeed = decimal.RequireFromString("62.5")
	horse.Sections = []model.SectionSummary{
		{CumulatedDistance: 1000, Rank: 4},
		{CumulatedDistance: 1200, Rank: 3, SectionTime: model.NewClock(0, 0, 11, 900)},
	}
	race.Horses = append(race.Horses, horse, model.NewHorseSummary())
	return race
}

func TestRowsPlaceholdersRightAligned(t *testing.T) {
	rows := Rows(testRace())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	row := rows[0]
	if len(row) != 55 {
		t.Fatalf("expected 55 cells, got %d", len(row))
	}
	if row[0] != "2023-05-14" || row[2] != "7" || row[7] != "00:01:09.320" {
		t.Fatalf("unexpected race cells: %v", row[:11])
	}
	if row[11] != "Golden Sixty" || row[22] != "62.5" {
		t.Fatalf("unexpected horse cells: %v", row[11:27])
	}
	if row[27] != "0" {
		t.Fatalf("expected placeholder rank in last_600 group, got %q", row[27])
	}
	for i := 28; i < 36; i++ {
		if row[i] != "N/A" {
			t.Fatalf("expected N/A at %d, got %q", i, row[i])
		}
	}
	if row[36] != "4" || row[45] != "3" || row[46] != "00:00:11.900" {
		t.Fatalf("unexpected section cells: %v", row[36:54])
	}
	if row[54] != "1200" {
		t.Fatalf("expected total distance 1200, got %q", row[54])
	}

	empty := rows[1]
	if len(empty) != 55 || empty[27] != "0" || empty[36] != "0" || empty[45] != "0" || empty[54] != "0" {
		t.Fatalf("unexpected row for horse without sections: %v", empty)
	}
}

func TestRowsKeepsLastThreeSections(t *testing.T) {
	race := testRace()
	race.Horses[0].Sections = []model.SectionSummary{
		{Rank: 9}, {Rank: 8}, {Rank: 7}, {Rank: 6, CumulatedDistance: 1600},
	}
	row := Rows(race)[0]
	if row[27] != "8" || row[36] != "7" || row[45] != "6" || row[54] != "1600" {
		t.Fatalf("unexpected section ranks %q %q %q total %q", row[27], row[36], row[45], row[54])
	}
}

func TestWriterOutput(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	if err := w.WriteRace(testRace()); err != nil {
		t.Fatalf("WriteRace failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("failed to read csv back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
}
