package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	wholeOvers   = regexp.MustCompile(`^\d+$`)
	partialOvers = regexp.MustCompile(`^\d+\.[0-5]$`)
)

// Upstream payloads are untrusted: every reader below returns a zero value on
// missing, null or wrong-typed input instead of failing.

func getMap(src map[string]any, key string) map[string]any {
	if src == nil {
		return nil
	}
	value, _ := src[key].(map[string]any)
	return value
}

func getSlice(src map[string]any, key string) []any {
	if src == nil {
		return nil
	}
	value, _ := src[key].([]any)
	return value
}

// getText reads strings and numbers as trimmed text.
func getText(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	return anyText(src[key])
}

func anyText(raw any) string {
	switch typed := raw.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return ""
		}
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		return ""
	}
}

// getRate renders numeric rates with two decimals and keeps textual ones as sent.
func getRate(src map[string]any, key string) string {
	if src == nil {
		return ""
	}
	switch typed := src[key].(type) {
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return ""
		}
		return strconv.FormatFloat(typed, 'f', 2, 64)
	case int:
		return strconv.FormatFloat(float64(typed), 'f', 2, 64)
	case int64:
		return strconv.FormatFloat(float64(typed), 'f', 2, 64)
	default:
		return anyText(typed)
	}
}

func getInt(src map[string]any, key string) int {
	value, _ := lookupInt(src, key)
	return value
}

// lookupInt reports whether key held something numeric.
func lookupInt(src map[string]any, key string) (int, bool) {
	if src == nil {
		return 0, false
	}
	switch typed := src[key].(type) {
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return int(typed), true
	case float32:
		return int(typed), true
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case string:
		trimmed := strings.TrimSpace(typed)
		if v, err := strconv.Atoi(trimmed); err == nil {
			return v, true
		}
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			return int(v), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func firstIntOf(src map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		if v, ok := lookupInt(src, key); ok {
			return v, true
		}
	}
	return 0, false
}

func getInt64(src map[string]any, key string) (int64, bool) {
	if src == nil {
		return 0, false
	}
	switch typed := src[key].(type) {
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return int64(typed), true
	case int:
		return int64(typed), true
	case int64:
		return typed, true
	case string:
		v, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// getBool accepts JSON booleans and their common textual forms.
func getBool(src map[string]any, key string) bool {
	if src == nil {
		return false
	}
	switch typed := src[key].(type) {
	case bool:
		return typed
	case string:
		v, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && v
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, item := range values {
		if strings.TrimSpace(item) != "" {
			return strings.TrimSpace(item)
		}
	}
	return ""
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

func nonNegative(value int) int {
	if value < 0 {
		return 0
	}
	return value
}

// formatOvers returns overs as "<completed>.<balls>" with balls in 0..5.
// Whole numbers gain ".0"; anything else falls back to fallback.
func formatOvers(raw, fallback string) string {
	text := strings.TrimSpace(raw)
	switch {
	case wholeOvers.MatchString(text):
		return text + ".0"
	case partialOvers.MatchString(text):
		return text
	default:
		return fallback
	}
}
