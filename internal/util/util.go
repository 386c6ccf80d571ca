// internal/util/util.go
// Package util provides small shared helpers used across the evaluator:
// file writing, rune-safe truncation, decimal rounding, and report
// timestamp formatting.
package util

import (
	"math"
	"os"
	"path/filepath"
	"time"
)

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// TruncateRunes shortens s to at most limit runes. No ellipsis is appended
// so the result can be embedded in CSV cells and webhook payloads verbatim.
func TruncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// RoundTo rounds value to the given number of decimal places. NaN and
// infinities pass through unchanged.
func RoundTo(value float64, places int) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	shift := math.Pow(10, float64(places))
	return math.Round(value*shift) / shift
}

// Timestamp formats t as YYYYMMDD_HHMMSS for use in report filenames.
func Timestamp(t time.Time) string {
	return t.Format("20060102_150405")
}
