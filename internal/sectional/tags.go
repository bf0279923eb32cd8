// Package sectional decodes race-timing XML documents into model records.
package sectional

// Race-level tags.
const (
	TagRaceSummary     = "RaceSummary"
	TagEventDate       = "EventDate"
	TagMeetingCode     = "MeetingCode"
	TagRaceCode        = "RaceCode"
	TagEventName       = "EventName"
	TagCourseName      = "CourseName"
	TagRaceName        = "RaceName"
	TagFinishTime      = "FinishTime"
	TagTime            = "Time"
	TagTrackName       = "TrackName"
	TagTrackCondition  = "TrackCondition"
	TagRailPosition    = "RailPosition"
	TagFastestSections = "FastestSections"
	TagHorses          = "Horses"
)

// Section-level tags, shared by fastest sections and horse sections.
const (
	TagSectionSummary        = "SectionSummary"
	TagCumulatedDistance     = "CumulatedDistance"
	TagMarginDecimal         = "MarginDecimal"
	TagRealDistance          = "RealDistance"
	TagRank                  = "Rank"
	TagIntermediateTime      = "IntermediateTime"
	TagSectionTime           = "SectionTime"
	TagAvgSpeed              = "AvgSpeed"
	TagTopSpeed              = "TopSpeed"
	TagAverageStrideFreq     = "AverageStrideFrequency"
	TagAverageStrideLength   = "AverageStrideLength"
	TagAverageDistanceToRail = "AverageDistanceToRail"
)

// Horse-level tags.
const (
	TagHorseSummary          = "HorseSummary"
	TagName                  = "Name"
	TagHorseCode             = "HorseCode"
	TagBib                   = "Bib"
	TagDrawNumber            = "DrawNumber"
	TagDistanceTravelled     = "DistanceTravelled"
	TagDistanceDifference    = "DistanceTraveledDifference"
	TagFinalRank             = "FinalRank"
	TagIsFinishTimeOfficial  = "IsFinishTimeOfficial"
	TagOfficialMarginDecimal = "OfficialMarginDecimal"
	TagFastestSectionTime    = "FastestSectionTime"
	TagFastestSectionIndex   = "FastestSectionIndex"
	TagTopSpeedSectionIndex  = "TopSpeedSectionIndex"
	TagResultState           = "ResultState"
	TagResultSubState        = "ResultSubState"

	TagSpeeds              = "Speeds"
	TagRanks               = "Ranks"
	TagTupleOfDoubleDouble = "SerializableTupleOfDoubleDouble"
	TagTupleOfDoubleInt32  = "SerializableTupleOfDoubleInt32"
	TagItem1               = "Item1"
	TagItem2               = "Item2"

	TagSections = "Sections"
)

func isTupleTag(name string) bool {
	return name == TagTupleOfDoubleDouble || name == TagTupleOfDoubleInt32
}
