package sectional

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/verte-zerg/sectionals/internal/model"
)

func TestPairBufferTakeResets(t *testing.T) {
	var b PairBuffer
	if err := b.SetItem1("3"); err != nil {
		t.Fatalf("SetItem1 failed: %v", err)
	}
	if err := b.SetItem2("15.2"); err != nil {
		t.Fatalf("SetItem2 failed: %v", err)
	}
	p := b.Take()
	if p.Index != 3 || !p.Value.Equal(decimal.RequireFromString("15.2")) {
		t.Fatalf("unexpected pair %+v", p)
	}
	next := b.Take()
	if next.Index != 0 || !next.Value.IsZero() {
		t.Fatalf("expected cleared buffer, got %+v", next)
	}
}

func TestPairBufferIntegralDecimalIndex(t *testing.T) {
	var b PairBuffer
	if err := b.SetItem1("400.0"); err != nil {
		t.Fatalf("SetItem1 failed: %v", err)
	}
	if err := b.SetItem1("1.5"); err == nil {
		t.Fatalf("expected fractional index to fail")
	}
	if p := b.Take(); p.Index != 400 {
		t.Fatalf("expected index 400, got %d", p.Index)
	}
}

func TestAppendPairUnknownCollection(t *testing.T) {
	h := model.NewHorseSummary()
	if err := AppendPair(&h, TagSections, model.Pair{}); err == nil {
		t.Fatalf("expected error for unknown collection")
	}
	if err := AppendPair(&h, TagRanks, model.Pair{Index: 1}); err != nil {
		t.Fatalf("AppendPair failed: %v", err)
	}
	if len(h.Ranks) != 1 {
		t.Fatalf("expected 1 rank, got %d", len(h.Ranks))
	}
}

func TestPairBufferIndexOutOfRange(t *testing.T) {
	var b PairBuffer
	if err := b.SetItem1("7"); err != nil {
		t.Fatalf("SetItem1 failed: %v", err)
	}
	for _, text := range []string{"99999999999", "1e10", "-2147483649", "2147483648.0"} {
		if err := b.SetItem1(text); err == nil {
			t.Fatalf("expected %q to be rejected", text)
		}
	}
	if err := b.SetItem1("2147483647.0"); err != nil {
		t.Fatalf("expected max int32 to fit: %v", err)
	}
	if p := b.Take(); p.Index != 2147483647 {
		t.Fatalf("expected max int32 index, got %d", p.Index)
	}
}
