package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/souqline/souqline-backend/pkg/errors"
)

func TestCursorRoundTrip(t *testing.T) {
	want := Cursor{
		CreatedAt: time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	got, err := ParseCursor(EncodeCursor(want))
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.ID != want.ID {
		t.Fatalf("expected %v, got %v", want, *got)
	}
}

func TestParseCursorBlankIsFirstPage(t *testing.T) {
	got, err := ParseCursor("  ")
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil cursor, got %v", *got)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"not-base64!", "bm8tc2VwYXJhdG9y", "MjAyNnxub3QtYS11dWlk"} {
		if _, err := ParseCursor(token); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %q, got %v", token, err)
		}
	}
}

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default %d, got %d", DefaultLimit, got)
	}
	if got := NormalizeLimit(1000); got != MaxLimit {
		t.Fatalf("expected cap %d, got %d", MaxLimit, got)
	}
	if got := LimitWithBuffer(10); got != 11 {
		t.Fatalf("expected 11, got %d", got)
	}
}
