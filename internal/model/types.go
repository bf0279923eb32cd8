// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RaceSummary is the root record of one sectionals document.
type RaceSummary struct {
	EventDate       time.Time               `json:"event_date" yaml:"event_date"`
	MeetingCode     int32                   `json:"meeting_code" yaml:"meeting_code"`
	RaceNumber      int32                   `json:"race_number" yaml:"race_number"`
	RaceCode        int32                   `json:"race_code" yaml:"race_code"`
	EventName       string                  `json:"event_name" yaml:"event_name"`
	CourseName      string                  `json:"course_name" yaml:"course_name"`
	RaceName        string                  `json:"race_name" yaml:"race_name"`
	FinishTime      Clock                   `json:"finish_time" yaml:"finish_time"`
	TrackName       string                  `json:"track_name" yaml:"track_name"`
	TrackCondition  string                  `json:"track_condition" yaml:"track_condition"`
	RailPosition    string                  `json:"rail_position" yaml:"rail_position"`
	FastestSections []FastestSectionSummary `json:"fastest_sections" yaml:"fastest_sections"`
	Horses          []HorseSummary          `json:"horses" yaml:"horses"`
}

// NewRaceSummary returns a race with every field at its default.
func NewRaceSummary() RaceSummary {
	return RaceSummary{
		EventDate:       EpochDate,
		FastestSections: []FastestSectionSummary{},
		Horses:          []HorseSummary{},
	}
}

// Valid reports whether the document carried a usable race code.
func (r RaceSummary) Valid() bool {
	return r.RaceCode != 0
}

// FastestSectionSummary is a race-level fastest section entry.
type FastestSectionSummary struct {
	CumulatedDistance int32 `json:"cumulated_distance" yaml:"cumulated_distance"`
	IntermediateTime  Clock `json:"intermediate_time" yaml:"intermediate_time"`
	SectionTime       Clock `json:"section_time" yaml:"section_time"`
}

// HorseSummary holds one runner's results and its section timeline.
type HorseSummary struct {
	Name                string           `json:"name" yaml:"name"`
	Code                int32            `json:"code" yaml:"code"`
	Bib                 int32            `json:"bib" yaml:"bib"`
	DrawNumber          int32            `json:"draw_number" yaml:"draw_number"`
	DistanceTravelled   int32            `json:"distance_travelled" yaml:"distance_travelled"`
	DistanceDifference  int32            `json:"distance_difference" yaml:"distance_difference"`
	FinalRank           uint8            `json:"final_rank" yaml:"final_rank"`
	TimeOfficial        bool             `json:"time_official" yaml:"time_official"`
	OfficialMargin      decimal.Decimal  `json:"official_margin" yaml:"official_margin"`
	FastestSectionTime  Clock            `json:"fastest_section_time" yaml:"fastest_section_time"`
	FastestSectionIndex uint8            `json:"fastest_section_index" yaml:"fastest_section_index"`
	TopSpeed            decimal.Decimal  `json:"top_speed" yaml:"top_speed"`
	TopSpeedIndex       uint8            `json:"top_speed_index" yaml:"top_speed_index"`
	FinishTime          Clock            `json:"finish_time" yaml:"finish_time"`
	ResultState         string           `json:"result_state" yaml:"result_state"`
	ResultSubState      string           `json:"result_sub_state" yaml:"result_sub_state"`
	Speeds              []Pair           `json:"speeds" yaml:"speeds"`
	Ranks               []Pair           `json:"ranks" yaml:"ranks"`
	Sections            []SectionSummary `json:"sections" yaml:"sections"`
}

// NewHorseSummary returns a horse with empty collections.
func NewHorseSummary() HorseSummary {
	return HorseSummary{
		Speeds:   []Pair{},
		Ranks:    []Pair{},
		Sections: []SectionSummary{},
	}
}

// SectionSummary is one section of a horse's run.
type SectionSummary struct {
	CumulatedDistance  int32           `json:"cumulated_distance" yaml:"cumulated_distance"`
	MarginDecimal      decimal.Decimal `json:"margin_decimal" yaml:"margin_decimal"`
	RealDistance       decimal.Decimal `json:"real_distance" yaml:"real_distance"`
	Rank               int32           `json:"rank" yaml:"rank"`
	IntermediateTime   Clock           `json:"intermediate_time" yaml:"intermediate_time"`
	SectionTime        Clock           `json:"section_time" yaml:"section_time"`
	AvgSpeed           decimal.Decimal `json:"avg_speed" yaml:"avg_speed"`
	TopSpeed           decimal.Decimal `json:"top_speed" yaml:"top_speed"`
	AvgStrideFrequency decimal.Decimal `json:"avg_stride_frequency" yaml:"avg_stride_frequency"`
	AvgStrideLength    decimal.Decimal `json:"avg_stride_length" yaml:"avg_stride_length"`
	AvgDistanceToRail  decimal.Decimal `json:"avg_distance_to_rail" yaml:"avg_distance_to_rail"`
}

// Pair is a (rank-or-index, value) entry of a horse's speeds or ranks.
type Pair struct {
	Index int32           `json:"index" yaml:"index"`
	Value decimal.Decimal `json:"value" yaml:"value"`
}

// RaceFilter narrows stored race listings.
type RaceFilter struct {
	Course string
	Since  *time.Time
	Limit  int
}

// RaceRow is a stored race as listed by the store.
type RaceRow struct {
	ID          int64
	RunID       string
	SourcePath  string
	EventDate   time.Time
	CourseName  string
	RaceNumber  int32
	RaceCode    int32
	RaceName    string
	FinishTime  Clock
	HorseCount  int
	TrackName   string
	Condition   string
	MeetingCode int32
}

// HorseRow is a stored horse result as listed by the store.
type HorseRow struct {
	RaceID     int64
	EventDate  time.Time
	CourseName string
	RaceNumber int32
	Name       string
	Code       int32
	FinalRank  uint8
	FinishTime Clock
}
