package proxygrid

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"audio-trends-service/internal/domain"
)

// DefaultMaxItems caps how many items one fetch returns.
const DefaultMaxItems = 50

// ParseTrendsJSON normalizes an upstream JSON body into trend items.
// Records are read from the "data" field, or from the body itself when it is an array.
// Items are deduplicated by id (first occurrence wins) and capped at DefaultMaxItems.
func ParseTrendsJSON(body []byte) ([]domain.TrendItem, error) {
	return parseTrendsJSON(body, DefaultMaxItems)
}

func parseTrendsJSON(body []byte, maxItems int) ([]domain.TrendItem, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding proxy grid JSON: %w", err)
	}

	records := recordsOf(payload)
	items := make([]domain.TrendItem, 0, min(len(records), maxItems))
	seen := make(map[string]struct{}, len(records))

	for index, raw := range records {
		record, _ := raw.(map[string]any)

		id := stringify(firstPresent(record, "id", "music_id"), fmt.Sprintf("tiktok-%d", index))
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		items = append(items, domain.TrendItem{
			ID:        id,
			Rank:      rankOf(firstPresent(record, "rank"), index),
			Title:     stringify(firstPresent(record, "title", "name"), "Unknown"),
			Author:    stringify(firstPresent(record, "author", "artist"), "Unknown"),
			PlayCount: countOf(firstPresent(record, "play_count", "video_count")),
			CoverURL:  stringify(firstPresent(record, "cover_url", "cover"), ""),
		})

		if len(items) >= maxItems {
			break
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Rank < items[j].Rank
	})

	return items, nil
}

func recordsOf(payload any) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		if data, ok := v["data"].([]any); ok {
			return data
		}
	}

	return nil
}

// firstPresent returns the first non-null value among keys.
func firstPresent(record map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := record[key]; ok && v != nil {
			return v
		}
	}

	return nil
}

func stringify(v any, fallback string) string {
	switch val := v.(type) {
	case nil:
		return fallback
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fallback
		}
		return string(b)
	}
}

// toFloat converts a scalar to a number. ok is false when v is not numeric.
func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	}

	return 0, false
}

// rankOf falls back to the 1-based position when rank is absent or not a positive number.
func rankOf(v any, index int) int {
	if v == nil {
		return index + 1
	}

	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > math.MaxInt32 {
		return index + 1
	}

	return int(f)
}

func countOf(v any) int64 {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(f)
}
