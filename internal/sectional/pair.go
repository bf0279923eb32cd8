package sectional

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/verte-zerg/sectionals/internal/model"
)

var (
	minInt32 = decimal.NewFromInt(math.MinInt32)
	maxInt32 = decimal.NewFromInt(math.MaxInt32)

	errOutOfRange = errors.New("value out of range")
)

// PairBuffer collects the Item1/Item2 components of one tuple wrapper.
type PairBuffer struct {
	index int32
	value decimal.Decimal
}

// SetItem1 parses the rank-or-index component. Integral decimals such as
// "3.0" are accepted because some feeds serialize every tuple as doubles.
func (b *PairBuffer) SetItem1(text string) error {
	n, err := parseInt32(text)
	if err == nil {
		b.index = n
		return nil
	}
	d, derr := parseDecimal(text)
	if derr != nil || !d.IsInteger() {
		return fmt.Errorf("item1 %q: %w", text, err)
	}
	if d.LessThan(minInt32) || d.GreaterThan(maxInt32) {
		return fmt.Errorf("item1 %q: %w", text, errOutOfRange)
	}
	b.index = int32(d.IntPart())
	return nil
}

// SetItem2 parses the value component.
func (b *PairBuffer) SetItem2(text string) error {
	d, err := parseDecimal(text)
	if err != nil {
		return fmt.Errorf("item2 %q: %w", text, err)
	}
	b.value = d
	return nil
}

// Take returns the assembled pair and clears the buffer.
func (b *PairBuffer) Take() model.Pair {
	p := model.Pair{Index: b.index, Value: b.value}
	b.Reset()
	return p
}

// Reset clears both components.
func (b *PairBuffer) Reset() {
	b.index = 0
	b.value = decimal.Decimal{}
}

// AppendPair appends p to the named pair collection of h.
func AppendPair(h *model.HorseSummary, collection string, p model.Pair) error {
	switch collection {
	case TagSpeeds:
		h.Speeds = append(h.Speeds, p)
	case TagRanks:
		h.Ranks = append(h.Ranks, p)
	default:
		return &FieldError{Kind: KindHorse, Field: collection, Err: ErrUnknownField}
	}
	return nil
}
