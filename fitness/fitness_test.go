package fitness

import (
	"bytes"
	"math"
	"testing"
)

func mo(objectives []float64, maximize bool) *MultiObjective {
	return &MultiObjective{Objectives: objectives, Maximize: maximize}
}

func TestMultiObjectiveBetterThanMaximize(t *testing.T) {
	a := mo([]float64{2, 2}, true)
	b := mo([]float64{1, 2}, true)
	if !a.BetterThan(b) {
		t.Fatalf("expected a to dominate b")
	}
	if b.BetterThan(a) {
		t.Fatalf("did not expect b to dominate a")
	}
}

func TestMultiObjectiveBetterThanMinimize(t *testing.T) {
	a := mo([]float64{1, 1}, false)
	b := mo([]float64{2, 1}, false)
	if !a.BetterThan(b) {
		t.Fatalf("expected a to dominate b under minimization")
	}
}

func TestMultiObjectiveEquivalentWhenIncomparable(t *testing.T) {
	a := mo([]float64{1, 2}, true)
	b := mo([]float64{2, 1}, true)
	if a.BetterThan(b) || b.BetterThan(a) {
		t.Fatalf("neither should dominate the other")
	}
	if !a.EquivalentTo(b) {
		t.Fatalf("incomparable fitnesses should be equivalent")
	}
}

func TestMultiObjectiveBetterThanPanicsOnShapeMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on objective-count mismatch")
		}
	}()
	a := mo([]float64{1}, true)
	b := mo([]float64{1, 2}, true)
	a.BetterThan(b)
}

func TestSetObjectivesSanitizesNaNAndInf(t *testing.T) {
	bounds, err := NewBounds([]float64{0, 0}, []float64{10, 10})
	if err != nil {
		t.Fatalf("NewBounds: %v", err)
	}
	f := &MultiObjective{Maximize: true, Bounds: bounds}
	var warned []string
	err = f.SetObjectives([]float64{math.NaN(), math.Inf(1)}, func(msg string) {
		warned = append(warned, msg)
	})
	if err != nil {
		t.Fatalf("SetObjectives: %v", err)
	}
	if f.Objectives[0] != bounds.Min[0] || f.Objectives[1] != bounds.Min[1] {
		t.Fatalf("expected sanitized objectives to fall back to bounds.Min, got %v", f.Objectives)
	}
	if len(warned) != 2 {
		t.Fatalf("expected a warning per sanitized objective, got %d", len(warned))
	}
}

func TestSetObjectivesRejectsWrongLength(t *testing.T) {
	bounds, _ := NewBounds([]float64{0}, []float64{1})
	f := &MultiObjective{Maximize: true, Bounds: bounds}
	if err := f.SetObjectives([]float64{1, 2}, nil); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestSPEA2BetterThanUsesSPEA2Fitness(t *testing.T) {
	a := &SPEA2{SPEA2Fitness: 0.4}
	b := &SPEA2{SPEA2Fitness: 0.9}
	if !a.BetterThan(b) {
		t.Fatalf("lower SPEA2Fitness should be better")
	}
}

func TestNewBoundsRejectsInvertedRange(t *testing.T) {
	if _, err := NewBounds([]float64{5}, []float64{1}); err == nil {
		t.Fatalf("expected error for min >= max")
	}
}

func TestBinaryCodecRoundTrip(t *testing.T) {
	cases := []Fitness{
		&ScalarFitness{Value: 3.5},
		mo([]float64{1, -2.5, 3}, false),
		&SPEA2{MultiObjective: *mo([]float64{0.1, 0.2}, true), SPEA2Fitness: 0.75},
	}
	for _, want := range cases {
		var buf bytes.Buffer
		if err := EncodeBinary(&buf, want); err != nil {
			t.Fatalf("EncodeBinary: %v", err)
		}
		got, err := DecodeBinary(&buf)
		if err != nil {
			t.Fatalf("DecodeBinary: %v", err)
		}
		if !want.EquivalentTo(got) {
			t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
		}
	}
}

func TestCalcDistance(t *testing.T) {
	a := mo([]float64{0, 0}, true)
	b := mo([]float64{3, 4}, true)
	if d := a.CalcDistance(b); d != 5 {
		t.Fatalf("expected distance 5, got %v", d)
	}
}
