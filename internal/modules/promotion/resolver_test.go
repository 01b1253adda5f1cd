package promotion

import (
	"reflect"
	"testing"
)

func defaultTable() map[string]float64 {
	return map[string]float64{
		"WELCOME50": 0.50,
		"MALI10":    0.10,
		"EVENING15": 0.15,
		"STUDENT20": 0.20,
	}
}

func TestResolver_Apply(t *testing.T) {
	r := NewResolver(defaultTable())

	tests := []struct {
		name         string
		code         string
		fare         int64
		wantFinal    int64
		wantDiscount int64
	}{
		{"case-insensitive welcome", "welcome50", 1000, 500, 500},
		{"padded code", "  Mali10 ", 1000, 900, 100},
		{"evening", "EVENING15", 1200, 1020, 180},
		{"student", "STUDENT20", 870, 696, 174},
		{"empty code", "", 1000, 1000, 0},
		{"unknown code", "FREERIDE", 1000, 1000, 0},
		{"zero fare", "WELCOME50", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			final, discount := r.Apply(tt.code, tt.fare)
			if final != tt.wantFinal || discount != tt.wantDiscount {
				t.Errorf("Apply(%q, %d) = (%d, %d), want (%d, %d)",
					tt.code, tt.fare, final, discount, tt.wantFinal, tt.wantDiscount)
			}
		})
	}
}

func TestResolver_UnknownCodesAreNoOps(t *testing.T) {
	r := NewResolver(defaultTable())
	for _, fare := range []int64{0, 1, 500, 12345} {
		for _, code := range []string{"", " ", "nope", "WELCOME5", "welcome500"} {
			final, discount := r.Apply(code, fare)
			if final != fare || discount != 0 {
				t.Errorf("Apply(%q, %d) = (%d, %d), want (%d, 0)", code, fare, final, discount, fare)
			}
		}
	}
}

func TestResolver_DiscountCappedAtFare(t *testing.T) {
	r := NewResolver(map[string]float64{"ALLFREE": 1.5, "FREE": 1})
	for _, code := range []string{"allfree", "free"} {
		final, discount := r.Apply(code, 1000)
		if final != 0 || discount != 1000 {
			t.Errorf("Apply(%q) = (%d, %d), want (0, 1000)", code, final, discount)
		}
		if final != 1000-discount {
			t.Errorf("Apply(%q): final %d != price %d - discount %d", code, final, 1000, discount)
		}
	}
}

func TestNewResolver_NormalizesAndDropsInvalid(t *testing.T) {
	table := map[string]float64{"welcome50": 0.5, " mali10": 0.1, "BROKEN": 0, "NEG": -0.2, "": 0.3}
	r := NewResolver(table)
	want := []string{"MALI10", "WELCOME50"}
	if got := r.Codes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Codes() = %v, want %v", got, want)
	}

	// The resolver keeps its own copy.
	table["NEW"] = 0.9
	if _, ok := r.Lookup("NEW"); ok {
		t.Fatal("resolver must not observe later table mutations")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  ref-abc "); got != "REF-ABC" {
		t.Errorf("Normalize = %q, want REF-ABC", got)
	}
}
