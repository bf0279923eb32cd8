package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/verte-zerg/sectionals/internal/model"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Horse", "Rank", "Time"}
	rows := [][]string{
		{"Golden Sixty", "1", "00:01:09.320"},
		{"Cafe", "12", "00:01:10"},
	}
	lines := FormatTable(headers, rows, map[int]bool{1: true})
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Horse        Rank Time" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Golden Sixty    1 00:01:09.320" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Cafe           12 00:01:10" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := FormatTable([]string{"Name", "N"}, [][]string{{"赤兎馬", "1"}}, nil)
	if lines[0] != "Name   N" || lines[1] != "赤兎馬 1" {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestWriteRace(t *testing.T) {
	race := model.NewRaceSummary()
	race.EventDate = time.Date(2023, 5, 14, 0, 0, 0, 0, time.UTC)
	race.CourseName = "Sha Tin"
	race.RaceNumber = 7
	race.RaceCode = 88123
	race.FastestSections = []model.FastestSectionSummary{{CumulatedDistance: 400, SectionTime: model.NewClock(0, 0, 22, 100)}}
	horse := model.NewHorseSummary()
	horse.Name = "Golden Sixty"
	horse.FinalRank = 1
	horse.TopSpeed = decimal.RequireFromString("62.5")
	race.Horses = append(race.Horses, horse)

	var buf bytes.Buffer
	if err := WriteRace(&buf, race); err != nil {
		t.Fatalf("WriteRace failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2023-05-14  Sha Tin  R7", "Race code 88123", "Fastest sections: 400m 00:00:22.100", "Golden Sixty", "62.50"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPlotSpeeds(t *testing.T) {
	horses := []model.HorseSummary{
		{Name: "A", Speeds: []model.Pair{{Index: 1, Value: decimal.NewFromInt(14)}, {Index: 2, Value: decimal.NewFromInt(16)}, {Index: 3, Value: decimal.NewFromInt(15)}}},
		{Name: "B", Speeds: []model.Pair{{Index: 1, Value: decimal.NewFromInt(13)}, {Index: 2, Value: decimal.NewFromInt(17)}}},
		{Name: "NoData"},
	}
	var buf bytes.Buffer
	if err := PlotSpeeds(&buf, horses, 20, 4); err != nil {
		t.Fatalf("PlotSpeeds failed: %v", err)
	}
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 4 plot rows and a legend, got %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[0]), "17.0") || !strings.HasPrefix(strings.TrimSpace(lines[3]), "13.0") {
		t.Fatalf("unexpected axis labels:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color when writing to a buffer")
	}
	if !strings.Contains(lines[4], "A (solid)") || !strings.Contains(lines[4], "B (dashed)") || strings.Contains(lines[4], "NoData") {
		t.Fatalf("unexpected legend %q", lines[4])
	}
}

func TestPlotSpeedsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotSpeeds(&buf, nil, 20, 4); err != nil {
		t.Fatalf("PlotSpeeds failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "No speed data." {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPlotWidthFor(t *testing.T) {
	if got := PlotWidthFor(80); got != 80-axisLabelWidth-3 {
		t.Fatalf("unexpected width %d", got)
	}
	if got := PlotWidthFor(0); got != minPlotWidth {
		t.Fatalf("expected min width %d, got %d", minPlotWidth, got)
	}
}

func TestResampleLength(t *testing.T) {
	for _, n := range []int{1, 3, 50} {
		values := make([]float64, n)
		if got := resample(values, 10); len(got) != 10 {
			t.Fatalf("resample(%d, 10) returned %d points", n, len(got))
		}
	}
}
