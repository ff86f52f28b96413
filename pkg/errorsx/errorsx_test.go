package errorsx

import "testing"

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonLLMStream)
	if Reason(err) != ReasonLLMStream {
		t.Fatalf("expected reason %s, got %s", ReasonLLMStream, Reason(err))
	}
	if !HasReason(err, ReasonLLMStream) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonTranscriptionFailed)
	second := Wrap(first, ReasonLLMStream)
	if Reason(second) != ReasonTranscriptionFailed {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ReasonPersistence) != nil {
		t.Fatalf("expected nil for nil error")
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown reason for nil error")
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
