// Package store handles SQLite persistence of decoded races.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/verte-zerg/sectionals/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

const dateLayout = "2006-01-02"

// ErrNotFound is returned when a race id does not exist.
var ErrNotFound = errors.New("race not found")

// Store wraps SQLite access for race data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps writes from separate goroutines serialized.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS races (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			source_path TEXT NOT NULL,
			ingested_at TEXT NOT NULL,
			event_date TEXT NOT NULL,
			meeting_code INTEGER NOT NULL,
			race_number INTEGER NOT NULL,
			race_code INTEGER NOT NULL UNIQUE,
			event_name TEXT NOT NULL,
			course_name TEXT NOT NULL,
			race_name TEXT NOT NULL,
			finish_time_ms INTEGER NOT NULL,
			track_name TEXT NOT NULL,
			track_condition TEXT NOT NULL,
			rail_position TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fastest_sections (
			race_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			cumulated_distance INTEGER NOT NULL,
			intermediate_time_ms INTEGER NOT NULL,
			section_time_ms INTEGER NOT NULL,
			PRIMARY KEY (race_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS horses (
			id INTEGER PRIMARY KEY,
			race_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			name_key TEXT NOT NULL,
			code INTEGER NOT NULL,
			bib INTEGER NOT NULL,
			draw_number INTEGER NOT NULL,
			distance_travelled INTEGER NOT NULL,
			distance_difference INTEGER NOT NULL,
			final_rank INTEGER NOT NULL,
			time_official INTEGER NOT NULL,
			official_margin TEXT NOT NULL,
			fastest_section_time_ms INTEGER NOT NULL,
			fastest_section_index INTEGER NOT NULL,
			top_speed TEXT NOT NULL,
			top_speed_index INTEGER NOT NULL,
			finish_time_ms INTEGER NOT NULL,
			result_state TEXT NOT NULL,
			result_sub_state TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS horse_sections (
			horse_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			cumulated_distance INTEGER NOT NULL,
			margin_decimal TEXT NOT NULL,
			real_distance TEXT NOT NULL,
			rank INTEGER NOT NULL,
			intermediate_time_ms INTEGER NOT NULL,
			section_time_ms INTEGER NOT NULL,
			avg_speed TEXT NOT NULL,
			top_speed TEXT NOT NULL,
			avg_stride_frequency TEXT NOT NULL,
			avg_stride_length TEXT NOT NULL,
			avg_distance_to_rail TEXT NOT NULL,
			PRIMARY KEY (horse_id, position)
		);`,
		`CREATE TABLE IF NOT EXISTS horse_pairs (
			horse_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			position INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (horse_id, kind, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_races_event_date ON races(event_date);`,
		`CREATE INDEX IF NOT EXISTS idx_horses_race_id ON horses(race_id);`,
		`CREATE INDEX IF NOT EXISTS idx_horses_name_key ON horses(name_key);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRace stores a race with all of its children. A race already stored under
// the same race code is replaced.
func (s *Store) InsertRace(ctx context.Context, runID, sourcePath string, race model.RaceSummary) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteRace(ctx, tx, race.RaceCode); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO races (run_id, source_path, ingested_at, event_date, meeting_code, race_number, race_code, event_name, course_name, race_name, finish_time_ms, track_name, track_condition, rail_position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		sourcePath,
		time.Now().UTC().Format(time.RFC3339Nano),
		race.EventDate.Format(dateLayout),
		race.MeetingCode,
		race.RaceNumber,
		race.RaceCode,
		race.EventName,
		race.CourseName,
		race.RaceName,
		race.FinishTime.Milliseconds(),
		race.TrackName,
		race.TrackCondition,
		race.RailPosition,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, fs := range race.FastestSections {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO fastest_sections (race_id, position, cumulated_distance, intermediate_time_ms, section_time_ms)
			 VALUES (?, ?, ?, ?, ?)`,
			id, i, fs.CumulatedDistance, fs.IntermediateTime.Milliseconds(), fs.SectionTime.Milliseconds()); err != nil {
			return 0, err
		}
	}
	for i, h := range race.Horses {
		if err = insertHorse(ctx, tx, id, i, h); err != nil {
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func insertHorse(ctx context.Context, tx *sql.Tx, raceID int64, position int, h model.HorseSummary) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO horses (race_id, position, name, name_key, code, bib, draw_number, distance_travelled, distance_difference, final_rank, time_official, official_margin, fastest_section_time_ms, fastest_section_index, top_speed, top_speed_index, finish_time_ms, result_state, result_sub_state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		raceID, position, h.Name, FoldName(h.Name), h.Code, h.Bib, h.DrawNumber,
		h.DistanceTravelled, h.DistanceDifference, h.FinalRank, h.TimeOfficial,
		h.OfficialMargin.String(), h.FastestSectionTime.Milliseconds(), h.FastestSectionIndex,
		h.TopSpeed.String(), h.TopSpeedIndex, h.FinishTime.Milliseconds(),
		h.ResultState, h.ResultSubState,
	)
	if err != nil {
		return err
	}
	horseID, err := res.LastInsertId()
	if err != nil {
		return err
	}

	if len(h.Sections) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO horse_sections (horse_id, position, cumulated_distance, margin_decimal, real_distance, rank, intermediate_time_ms, section_time_ms, avg_speed, top_speed, avg_stride_frequency, avg_stride_length, avg_distance_to_rail)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() {
			_ = stmt.Close()
		}()
		for i, sec := range h.Sections {
			if _, err := stmt.ExecContext(ctx, horseID, i, sec.CumulatedDistance,
				sec.MarginDecimal.String(), sec.RealDistance.String(), sec.Rank,
				sec.IntermediateTime.Milliseconds(), sec.SectionTime.Milliseconds(),
				sec.AvgSpeed.String(), sec.TopSpeed.String(), sec.AvgStrideFrequency.String(),
				sec.AvgStrideLength.String(), sec.AvgDistanceToRail.String()); err != nil {
				return err
			}
		}
	}

	for kind, pairs := range map[string][]model.Pair{pairSpeeds: h.Speeds, pairRanks: h.Ranks} {
		for i, p := range pairs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO horse_pairs (horse_id, kind, position, idx, value) VALUES (?, ?, ?, ?, ?)`,
				horseID, kind, i, p.Index, p.Value.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

const (
	pairSpeeds = "speeds"
	pairRanks  = "ranks"
)

func deleteRace(ctx context.Context, tx *sql.Tx, raceCode int32) error {
	stmts := []string{
		`DELETE FROM horse_pairs WHERE horse_id IN (SELECT h.id FROM horses h JOIN races r ON r.id = h.race_id WHERE r.race_code = ?)`,
		`DELETE FROM horse_sections WHERE horse_id IN (SELECT h.id FROM horses h JOIN races r ON r.id = h.race_id WHERE r.race_code = ?)`,
		`DELETE FROM horses WHERE race_id IN (SELECT id FROM races WHERE race_code = ?)`,
		`DELETE FROM fastest_sections WHERE race_id IN (SELECT id FROM races WHERE race_code = ?)`,
		`DELETE FROM races WHERE race_code = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, raceCode); err != nil {
			return err
		}
	}
	return nil
}

// ListRaces returns stored races ordered by date and race number.
func (s *Store) ListRaces(ctx context.Context, filter model.RaceFilter) ([]model.RaceRow, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Course != "" {
		clauses = append(clauses, "r.course_name = ? COLLATE NOCASE")
		args = append(args, filter.Course)
	}
	if filter.Since != nil {
		clauses = append(clauses, "r.event_date >= ?")
		args = append(args, filter.Since.Format(dateLayout))
	}
	query := fmt.Sprintf(`SELECT r.id, r.run_id, r.source_path, r.event_date, r.course_name, r.race_number,
			r.race_code, r.race_name, r.finish_time_ms, r.track_name, r.track_condition, r.meeting_code,
			(SELECT COUNT(*) FROM horses h WHERE h.race_id = r.id) AS horse_count
		FROM races r
		WHERE %s
		ORDER BY r.event_date ASC, r.course_name ASC, r.race_number ASC`, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var races []model.RaceRow
	for rows.Next() {
		var row model.RaceRow
		var eventDate string
		var finishMs int64
		if err := rows.Scan(&row.ID, &row.RunID, &row.SourcePath, &eventDate, &row.CourseName, &row.RaceNumber,
			&row.RaceCode, &row.RaceName, &finishMs, &row.TrackName, &row.Condition, &row.MeetingCode,
			&row.HorseCount); err != nil {
			return nil, err
		}
		if row.EventDate, err = time.Parse(dateLayout, eventDate); err != nil {
			return nil, err
		}
		row.FinishTime = clockFromMs(finishMs)
		races = append(races, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return races, nil
}

// GetRace rebuilds the full race aggregate stored under id.
func (s *Store) GetRace(ctx context.Context, id int64) (model.RaceSummary, error) {
	race := model.NewRaceSummary()
	var eventDate string
	var finishMs int64
	err := s.db.QueryRowContext(ctx,
		`SELECT event_date, meeting_code, race_number, race_code, event_name, course_name, race_name,
			finish_time_ms, track_name, track_condition, rail_position
		 FROM races WHERE id = ?`, id).Scan(
		&eventDate, &race.MeetingCode, &race.RaceNumber, &race.RaceCode, &race.EventName,
		&race.CourseName, &race.RaceName, &finishMs, &race.TrackName, &race.TrackCondition,
		&race.RailPosition)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RaceSummary{}, ErrNotFound
	}
	if err != nil {
		return model.RaceSummary{}, err
	}
	if race.EventDate, err = time.Parse(dateLayout, eventDate); err != nil {
		return model.RaceSummary{}, err
	}
	race.FinishTime = clockFromMs(finishMs)

	if race.FastestSections, err = s.fastestSections(ctx, id); err != nil {
		return model.RaceSummary{}, err
	}
	if race.Horses, err = s.horses(ctx, id); err != nil {
		return model.RaceSummary{}, err
	}
	return race, nil
}

func (s *Store) fastestSections(ctx context.Context, raceID int64) ([]model.FastestSectionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cumulated_distance, intermediate_time_ms, section_time_ms
		 FROM fastest_sections WHERE race_id = ? ORDER BY position`, raceID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	sections := []model.FastestSectionSummary{}
	for rows.Next() {
		var fs model.FastestSectionSummary
		var intermediateMs, sectionMs int64
		if err := rows.Scan(&fs.CumulatedDistance, &intermediateMs, &sectionMs); err != nil {
			return nil, err
		}
		fs.IntermediateTime = clockFromMs(intermediateMs)
		fs.SectionTime = clockFromMs(sectionMs)
		sections = append(sections, fs)
	}
	return sections, rows.Err()
}

func (s *Store) horses(ctx context.Context, raceID int64) ([]model.HorseSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, code, bib, draw_number, distance_travelled, distance_difference, final_rank,
			time_official, official_margin, fastest_section_time_ms, fastest_section_index, top_speed,
			top_speed_index, finish_time_ms, result_state, result_sub_state
		 FROM horses WHERE race_id = ? ORDER BY position`, raceID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	horses := []model.HorseSummary{}
	var ids []int64
	for rows.Next() {
		h := model.NewHorseSummary()
		var id, fastestMs, finishMs int64
		var margin, topSpeed string
		if err := rows.Scan(&id, &h.Name, &h.Code, &h.Bib, &h.DrawNumber, &h.DistanceTravelled,
			&h.DistanceDifference, &h.FinalRank, &h.TimeOfficial, &margin, &fastestMs,
			&h.FastestSectionIndex, &topSpeed, &h.TopSpeedIndex, &finishMs, &h.ResultState,
			&h.ResultSubState); err != nil {
			return nil, err
		}
		if h.OfficialMargin, err = decimal.NewFromString(margin); err != nil {
			return nil, err
		}
		if h.TopSpeed, err = decimal.NewFromString(topSpeed); err != nil {
			return nil, err
		}
		h.FastestSectionTime = clockFromMs(fastestMs)
		h.FinishTime = clockFromMs(finishMs)
		horses = append(horses, h)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Children are loaded after rows is drained; the pool holds a single connection.
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		if horses[i].Sections, err = s.horseSections(ctx, id); err != nil {
			return nil, err
		}
		if err := s.horsePairs(ctx, id, &horses[i]); err != nil {
			return nil, err
		}
	}
	return horses, nil
}

func (s *Store) horseSections(ctx context.Context, horseID int64) ([]model.SectionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cumulated_distance, margin_decimal, real_distance, rank, intermediate_time_ms, section_time_ms,
			avg_speed, top_speed, avg_stride_frequency, avg_stride_length, avg_distance_to_rail
		 FROM horse_sections WHERE horse_id = ? ORDER BY position`, horseID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	sections := []model.SectionSummary{}
	for rows.Next() {
		var sec model.SectionSummary
		var intermediateMs, sectionMs int64
		if err := rows.Scan(&sec.CumulatedDistance, &sec.MarginDecimal, &sec.RealDistance, &sec.Rank,
			&intermediateMs, &sectionMs, &sec.AvgSpeed, &sec.TopSpeed, &sec.AvgStrideFrequency,
			&sec.AvgStrideLength, &sec.AvgDistanceToRail); err != nil {
			return nil, err
		}
		sec.IntermediateTime = clockFromMs(intermediateMs)
		sec.SectionTime = clockFromMs(sectionMs)
		sections = append(sections, sec)
	}
	return sections, rows.Err()
}

func (s *Store) horsePairs(ctx context.Context, horseID int64, h *model.HorseSummary) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, idx, value FROM horse_pairs WHERE horse_id = ? ORDER BY kind, position`, horseID)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var kind string
		var p model.Pair
		if err := rows.Scan(&kind, &p.Index, &p.Value); err != nil {
			return err
		}
		switch kind {
		case pairSpeeds:
			h.Speeds = append(h.Speeds, p)
		case pairRanks:
			h.Ranks = append(h.Ranks, p)
		}
	}
	return rows.Err()
}

// FindHorses returns stored results for horses whose folded name contains query.
func (s *Store) FindHorses(ctx context.Context, query string) ([]model.HorseRow, error) {
	key := FoldName(query)
	if key == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.race_id, r.event_date, r.course_name, r.race_number, h.name, h.code, h.final_rank, h.finish_time_ms
		 FROM horses h
		 JOIN races r ON r.id = h.race_id
		 WHERE instr(h.name_key, ?) > 0
		 ORDER BY r.event_date DESC, r.race_number ASC, h.position ASC`, key)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []model.HorseRow
	for rows.Next() {
		var row model.HorseRow
		var eventDate string
		var finishMs int64
		if err := rows.Scan(&row.RaceID, &eventDate, &row.CourseName, &row.RaceNumber, &row.Name,
			&row.Code, &row.FinalRank, &finishMs); err != nil {
			return nil, err
		}
		if row.EventDate, err = time.Parse(dateLayout, eventDate); err != nil {
			return nil, err
		}
		row.FinishTime = clockFromMs(finishMs)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func clockFromMs(ms int64) model.Clock {
	return model.Clock(time.Duration(ms) * time.Millisecond)
}
