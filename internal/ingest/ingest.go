// Package ingest decodes a directory of sectionals documents and hands the
// valid races to sinks.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/sectionals/internal/model"
	"github.com/verte-zerg/sectionals/internal/sectional"
)

// Document is one decoded race with the issues found while decoding it.
type Document struct {
	RunID  string
	Path   string
	Race   model.RaceSummary
	Issues []sectional.Issue
}

// Sink receives valid documents in file name order.
type Sink interface {
	Accept(ctx context.Context, doc Document) error
}

// Options configures Run.
type Options struct {
	Dir       string
	Workers   int
	RejectLog string
	Logf      func(format string, args ...any)
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID    string
	Files    int
	Decoded  int
	Rejected int
	Failed   int
	Issues   int
}

type result struct {
	path       string
	race       model.RaceSummary
	issues     []sectional.Issue
	issueCount int
	err        error
}

// Run decodes every .xml file in opts.Dir. Documents that fail to tokenize are
// logged and counted; they do not stop the run. Sink errors do.
func Run(ctx context.Context, opts Options, sinks ...Sink) (Summary, error) {
	logf := opts.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	paths, err := listDocuments(opts.Dir)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{RunID: ksuid.New().String(), Files: len(paths)}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([]result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = decodeFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	for _, res := range results {
		if res.err != nil {
			summary.Failed++
			var serr *sectional.SyntaxError
			if errors.As(res.err, &serr) {
				logf("%s: offset %d: %v", res.path, serr.Offset, serr.Err)
			} else {
				logf("%s: %v", res.path, res.err)
			}
			continue
		}
		summary.Decoded++
		summary.Issues += res.issueCount

		if !res.race.Valid() {
			summary.Rejected++
			logf("%s: rejected, missing race code", res.path)
			if err := appendReject(opts.RejectLog, res.path); err != nil {
				return summary, err
			}
			continue
		}

		doc := Document{RunID: summary.RunID, Path: res.path, Race: res.race, Issues: res.issues}
		for _, sink := range sinks {
			if err := sink.Accept(ctx, doc); err != nil {
				return summary, fmt.Errorf("failed to accept %s: %w", res.path, err)
			}
		}
	}
	return summary, nil
}

// DecodeFile decodes one document and sets its race number from the file name.
func DecodeFile(path string) (model.RaceSummary, []sectional.Issue, error) {
	res := decodeFile(path)
	return res.race, res.issues, res.err
}

// decodeFile also counts the issues the decoder did not retain.
func decodeFile(path string) result {
	res := result{path: path}
	file, err := os.Open(path)
	if err != nil {
		res.err = fmt.Errorf("failed to open document: %w", err)
		return res
	}
	defer func() {
		_ = file.Close()
	}()

	dec := sectional.NewDecoder()
	race, err := dec.DecodeReader(file)
	if err != nil {
		res.err = err
		return res
	}
	res.issues = dec.Issues()
	res.issueCount = dec.IssueCount()

	number, err := RaceNumberFromPath(path)
	if err != nil {
		res.issues = append(res.issues, sectional.Issue{Field: "RaceNumber", Value: filepath.Base(path), Offset: -1, Err: err})
		res.issueCount++
	} else {
		race.RaceNumber = number
	}
	res.race = race
	return res
}

// RaceNumberFromPath reads the race number from names like 20230514_ST_R7.xml.
func RaceNumberFromPath(path string) (int32, error) {
	base := filepath.Base(path)
	token := base[strings.LastIndex(base, "_")+1:]
	token = strings.TrimSuffix(token, filepath.Ext(token))
	digits, ok := strings.CutPrefix(strings.ToUpper(token), "R")
	if !ok {
		return 0, fmt.Errorf("no race number in %q", base)
	}
	n, err := strconv.ParseInt(digits, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("no race number in %q: %w", base, err)
	}
	return int32(n), nil
}

func listDocuments(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("input directory is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input dir: %w", err)
	}
	docs := lo.FilterMap(entries, func(entry os.DirEntry, _ int) (string, bool) {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			return "", false
		}
		return filepath.Join(dir, entry.Name()), true
	})
	sort.Strings(docs)
	return docs, nil
}

func appendReject(path, doc string) error {
	if path == "" {
		return nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open reject log: %w", err)
	}
	if _, err := fmt.Fprintln(file, doc); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write reject log: %w", err)
	}
	return file.Close()
}
