package errsink_test

import (
	"errors"
	"testing"

	"github.com/evoframe/evocore/errsink"
)

func TestAddNilIsNoOp(t *testing.T) {
	var s errsink.Sink
	s.Add(nil)
	if s.HasErrors() {
		t.Fatalf("expected no errors after adding nil")
	}
}

func TestAddAccumulatesInOrder(t *testing.T) {
	var s errsink.Sink
	s.Add(errors.New("first"))
	s.Addf("second: %d", 2)
	if len(s.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(s.Errors()))
	}
	if s.Errors()[0].Error() != "first" || s.Errors()[1].Error() != "second: 2" {
		t.Fatalf("unexpected error order/content: %v", s.Errors())
	}
}
