package paramdb_test

import (
	"strings"
	"testing"

	"github.com/evoframe/evocore/paramdb"
)

func TestLoadParsesKeyValueLines(t *testing.T) {
	db := paramdb.New()
	input := `
# a comment
breed.mu.0 = 10
breed.lambda.0 = 70
multi.maximize = true
`
	if err := db.Load(strings.NewReader(input)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, ok := db.Int("breed.mu.0"); !ok || v != 10 {
		t.Fatalf("breed.mu.0: got %d, %v", v, ok)
	}
	if v, ok := db.Int("breed.lambda.0"); !ok || v != 70 {
		t.Fatalf("breed.lambda.0: got %d, %v", v, ok)
	}
	if v, ok := db.Bool("multi.maximize"); !ok || !v {
		t.Fatalf("multi.maximize: got %v, %v", v, ok)
	}
}

func TestLoadRejectsLineWithoutEquals(t *testing.T) {
	db := paramdb.New()
	if err := db.Load(strings.NewReader("not-a-kv-line")); err == nil {
		t.Fatalf("expected error for malformed line")
	}
}

func TestOverlayWinsOverLoad(t *testing.T) {
	db := paramdb.New()
	if err := db.Load(strings.NewReader("x = 1")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	db.Overlay("x", "2")
	if v, ok := db.Int("x"); !ok || v != 2 {
		t.Fatalf("expected overlay to win, got %d", v)
	}
}

func TestMissingKeyReturnsFalse(t *testing.T) {
	db := paramdb.New()
	if _, ok := db.Int("nope"); ok {
		t.Fatalf("expected missing key to report ok=false")
	}
}
