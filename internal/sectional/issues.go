package sectional

import "fmt"

const defaultIssueLimit = 256

// Issue records a value the decoder skipped because it could not be coerced.
type Issue struct {
	Path   string // ancestry of the offending tag, e.g. /RaceSummary/Horses/HorseSummary/Bib
	Field  string
	Value  string
	Offset int64
	Err    error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s at byte %d: %v", i.Path, i.Offset, i.Err)
}
