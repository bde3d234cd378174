package satsolve

import (
	"context"
	"testing"
	"time"

	"github.com/lucidscript/lucid/internal/constraint"
)

func TestSolveIteratePinsVariableBounds(t *testing.T) {
	intType := constraint.Instance{
		MRO:       constraint.NewMRO([]*constraint.Class{{Name: "int"}}),
		Overrides: map[string]constraint.Type{},
	}
	s := constraint.NewStore()
	v := s.FreshVariable("x")
	cs := []constraint.Constraint{
		{Left: intType, Right: v, Kind: constraint.KindSubtype},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bounds, err := SolveIterate(ctx, DPLLBackend{}, cs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	key := "T" + itoa(v.Identity)
	b, ok := bounds[key]
	if !ok {
		t.Fatalf("expected a bounds entry for %s, got %v", key, bounds)
	}
	if b.Lower == nil || b.Lower.String() != intType.String() {
		t.Errorf("expected lower bound %s, got %v", intType, b.Lower)
	}
}

func itoa(id uint64) string {
	if id == 0 {
		return "0"
	}
	digits := []byte{}
	for id > 0 {
		digits = append([]byte{byte('0' + id%10)}, digits...)
		id /= 10
	}
	return string(digits)
}
