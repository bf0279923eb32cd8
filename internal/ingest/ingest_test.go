package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

type recordingSink struct {
	mu   sync.Mutex
	docs []Document
}

func (s *recordingSink) Accept(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return nil
}

func writeDoc(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestRaceNumberFromPath(t *testing.T) {
	cases := []struct {
		path string
		want int32
		ok   bool
	}{
		{"/data/20230514_ST_R7.xml", 7, true},
		{"20230514_HV_r10.xml", 10, true},
		{"R3.xml", 3, true},
		{"20230514_ST.xml", 0, false},
		{"20230514_ST_Rx.xml", 0, false},
	}
	for _, tc := range cases {
		got, err := RaceNumberFromPath(tc.path)
		if tc.ok && err != nil {
			t.Fatalf("RaceNumberFromPath(%q) failed: %v", tc.path, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("expected error for %q", tc.path)
		}
		if got != tc.want {
			t.Fatalf("RaceNumberFromPath(%q): expected %d, got %d", tc.path, tc.want, got)
		}
	}
}

func TestRunOrdersAndRejects(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "20230514_ST_R2.xml", `<RaceSummary><RaceCode>102</RaceCode><Horses><HorseSummary><Bib>x</Bib></HorseSummary></Horses></RaceSummary>`)
	writeDoc(t, dir, "20230514_ST_R1.xml", `<RaceSummary><RaceCode>101</RaceCode></RaceSummary>`)
	rejected := writeDoc(t, dir, "20230514_ST_R3.xml", `<RaceSummary><CourseName>Sha Tin</CourseName></RaceSummary>`)
	writeDoc(t, dir, "20230514_ST_R4.xml", `<RaceSummary><RaceCode>104</RaceCode>`)
	writeDoc(t, dir, "notes.txt", "ignored")
	rejectLog := filepath.Join(t.TempDir(), "error.txt")

	var logs []string
	sink := &recordingSink{}
	summary, err := Run(context.Background(), Options{
		Dir:       dir,
		Workers:   2,
		RejectLog: rejectLog,
		Logf: func(format string, args ...any) {
			logs = append(logs, format)
		},
	}, sink)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Files != 4 || summary.Decoded != 3 || summary.Rejected != 1 || summary.Failed != 1 || summary.Issues != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatalf("expected run id")
	}
	if len(sink.docs) != 2 {
		t.Fatalf("expected 2 accepted documents, got %d", len(sink.docs))
	}
	if sink.docs[0].Race.RaceNumber != 1 || sink.docs[1].Race.RaceNumber != 2 {
		t.Fatalf("documents out of order: %d, %d", sink.docs[0].Race.RaceNumber, sink.docs[1].Race.RaceNumber)
	}
	if sink.docs[1].RunID != summary.RunID || len(sink.docs[1].Issues) != 1 {
		t.Fatalf("unexpected document %+v", sink.docs[1])
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 log lines, got %v", logs)
	}

	data, err := os.ReadFile(rejectLog)
	if err != nil {
		t.Fatalf("failed to read reject log: %v", err)
	}
	if strings.TrimSpace(string(data)) != rejected {
		t.Fatalf("unexpected reject log %q", data)
	}
}

func TestRunCountsIssuesBeyondRetention(t *testing.T) {
	dir := t.TempDir()
	var b strings.Builder
	b.WriteString(`<RaceSummary><RaceCode>7</RaceCode><Horses><HorseSummary>`)
	for i := 0; i < 300; i++ {
		b.WriteString(`<Bib>x</Bib>`)
	}
	b.WriteString(`</HorseSummary></Horses></RaceSummary>`)
	writeDoc(t, dir, "20230514_ST_R1.xml", b.String())

	sink := &recordingSink{}
	summary, err := Run(context.Background(), Options{Dir: dir, RejectLog: filepath.Join(t.TempDir(), "error.txt")}, sink)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Issues != 300 {
		t.Fatalf("expected 300 issues, got %d", summary.Issues)
	}
	if len(sink.docs) != 1 || len(sink.docs[0].Issues) != 256 {
		t.Fatalf("expected one document with 256 retained issues, got %d documents", len(sink.docs))
	}
}

func TestRunMissingDir(t *testing.T) {
	if _, err := Run(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestDecodeFileRecordsMissingRaceNumber(t *testing.T) {
	path := writeDoc(t, t.TempDir(), "race.xml", `<RaceSummary><RaceCode>5</RaceCode></RaceSummary>`)
	race, issues, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if race.RaceCode != 5 || race.RaceNumber != 0 {
		t.Fatalf("unexpected race %+v", race)
	}
	if len(issues) != 1 || issues[0].Field != "RaceNumber" {
		t.Fatalf("expected race number issue, got %+v", issues)
	}
}
