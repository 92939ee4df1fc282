package tiers

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable marks network errors, timeouts and non-2xx responses.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrParseFailure marks a payload that could not be decoded.
	ErrParseFailure = errors.New("parse failure")

	// ErrContentTooShort marks content that fell below a tier's length threshold.
	ErrContentTooShort = errors.New("content too short")

	// ErrCatalogMiss marks a category that is not in the catalog.
	ErrCatalogMiss = errors.New("category not in catalog")
)

// SourceError records why one source (or one page of it) yielded nothing.
type SourceError struct {
	Tier string `json:"tier"`
	URL  string `json:"url"`
	Err  error  `json:"-"`
}

func (e *SourceError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s tier: %v", e.Tier, e.Err)
	}
	return fmt.Sprintf("%s tier: %s: %v", e.Tier, e.URL, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) MarshalJSON() ([]byte, error) {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return json.Marshal(struct {
		Tier  string `json:"tier"`
		URL   string `json:"url,omitempty"`
		Error string `json:"error"`
	}{e.Tier, e.URL, msg})
}

func sourceErr(tier, url string, kind error, cause error) *SourceError {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %v", kind, cause)
	}
	return &SourceError{Tier: tier, URL: url, Err: err}
}
