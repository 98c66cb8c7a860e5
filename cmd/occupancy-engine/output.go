package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

func parseDateUTC(v string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, withCode(exitUsage, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", v))
	}
	return t.UTC(), nil
}

// optionalDate parses v when non-empty.
func optionalDate(v string) (*time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	t, err := parseDateUTC(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optionalID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
