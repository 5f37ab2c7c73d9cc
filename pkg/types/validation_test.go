package types

import (
	"errors"
	"testing"
)

// mustReason asserts that err is an *InvalidAliasError with the given reason.
func mustReason(t *testing.T, err error, want InvalidAliasReason) {
	t.Helper()
	var ie *InvalidAliasError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *InvalidAliasError, got %v", err)
	}
	if ie.Reason != want {
		t.Fatalf("expected reason %q, got %q (%v)", want, ie.Reason, err)
	}
}

func TestAliasValidate_OK(t *testing.T) {
	a := Alias{Alias: "NLP", Entities: []string{"a3", "a4"}, Probabilities: []float64{0.5, 0.5}}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate() failed on a well-formed alias: %v", err)
	}
}

func TestAliasValidate_ResidualMassAllowed(t *testing.T) {
	// Sum below 1 is fine; the residual is "none of the above" mass.
	a := Alias{Alias: "ML", Entities: []string{"a1"}, Probabilities: []float64{0.3}}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate() rejected residual probability mass: %v", err)
	}
}

func TestAliasValidate_EmptyAlias(t *testing.T) {
	a := Alias{Entities: []string{"a1"}, Probabilities: []float64{1.0}}
	mustReason(t, a.Validate(), ReasonEmptyAlias)
}

func TestAliasValidate_NoEntities(t *testing.T) {
	a := Alias{Alias: "x"}
	mustReason(t, a.Validate(), ReasonNoEntities)
}

func TestAliasValidate_LengthMismatch(t *testing.T) {
	a := Alias{Alias: "x", Entities: []string{"a", "b"}, Probabilities: []float64{1.0}}
	mustReason(t, a.Validate(), ReasonLengthMismatch)
}

func TestAliasValidate_ProbabilityRange(t *testing.T) {
	a := Alias{Alias: "x", Entities: []string{"a"}, Probabilities: []float64{-0.1}}
	mustReason(t, a.Validate(), ReasonProbabilityRange)

	a = Alias{Alias: "x", Entities: []string{"a"}, Probabilities: []float64{1.5}}
	mustReason(t, a.Validate(), ReasonProbabilityRange)
}

func TestAliasValidate_ProbabilityOverflow(t *testing.T) {
	a := Alias{Alias: "x", Entities: []string{"a", "b"}, Probabilities: []float64{0.6, 0.6}}
	mustReason(t, a.Validate(), ReasonProbabilityOverflow)
}

func TestAliasValidate_ExactSumWithinEpsilon(t *testing.T) {
	// Three thirds do not sum to exactly 1 in floating point; the epsilon
	// must absorb the representation error.
	a := Alias{
		Alias:         "x",
		Entities:      []string{"a", "b", "c"},
		Probabilities: []float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("Validate() rejected sum within epsilon: %v", err)
	}
}

func TestLinkResult_Linked(t *testing.T) {
	linked := LinkResult{KBID: "a1"}
	if !linked.Linked() {
		t.Error("expected Linked() == true for a real entity id")
	}

	nilResult := LinkResult{KBID: NIL}
	if nilResult.Linked() {
		t.Error("expected Linked() == false for the NIL sentinel")
	}
}
