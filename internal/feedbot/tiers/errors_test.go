package tiers

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSourceError_WrapsKind(t *testing.T) {
	e := sourceErr("rss", "https://example.com/feed", ErrParseFailure, errors.New("unexpected EOF"))
	if !errors.Is(e, ErrParseFailure) {
		t.Fatal("expected errors.Is to find the kind")
	}
	if errors.Is(e, ErrSourceUnavailable) {
		t.Fatal("unexpected kind match")
	}
	want := "rss tier: https://example.com/feed: parse failure: unexpected EOF"
	if e.Error() != want {
		t.Fatalf("got %q, want %q", e.Error(), want)
	}
}

func TestSourceError_JSON(t *testing.T) {
	data, err := json.Marshal(sourceErr("web", "", ErrContentTooShort, nil))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"tier":"web","error":"content too short"}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}
