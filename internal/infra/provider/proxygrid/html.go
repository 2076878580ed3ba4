package proxygrid

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"

	"audio-trends-service/internal/domain"
)

var (
	embeddedTrendPattern = regexp.MustCompile(`"music_id":"?(\d+)"?[^}]*?"title":"([^"]+)"[^}]*?"author":"([^"]*)"`)
	musicLinkPattern     = regexp.MustCompile(`/music/(?:[^/?#]*-)?(\d+)`)
	unicodeEscapePattern = regexp.MustCompile(`(?:\\u[0-9A-Fa-f]{4})+`)

	// Checked in order, the first match wins.
	countPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"video_count":(\d+)`),
		regexp.MustCompile(`"videoCnt":(\d+)`),
		regexp.MustCompile(`"play_count":(\d+)`),
	}
)

// ParseFallbackHTML extracts trend items from a non-JSON upstream body.
// It first looks for embedded music_id/title/author fragments and, when none are
// found, for anchor links to /music/{id}. It never fails: no matches yield an empty list.
func ParseFallbackHTML(text string) []domain.TrendItem {
	return parseFallbackHTML(text, DefaultMaxItems)
}

func parseFallbackHTML(text string, maxItems int) []domain.TrendItem {
	items := make([]domain.TrendItem, 0)
	if strings.TrimSpace(text) == "" {
		return items
	}

	seen := make(map[string]struct{})

	for _, loc := range embeddedTrendPattern.FindAllStringSubmatchIndex(text, -1) {
		id := text[loc[2]:loc[3]]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		items = append(items, domain.TrendItem{
			ID:        id,
			Rank:      len(items) + 1,
			Title:     orUnknown(decodeEscapes(text[loc[4]:loc[5]])),
			Author:    orUnknown(decodeEscapes(text[loc[6]:loc[7]])),
			PlayCount: extractPlayCount(countSnippet(text, loc[0], loc[1])),
		})

		if len(items) >= maxItems {
			return items
		}
	}

	if len(items) > 0 {
		return items
	}

	return parseMusicLinks(text, seen, items, maxItems)
}

// parseMusicLinks collects anchors linking to a numeric music id, using the link text as title.
func parseMusicLinks(text string, seen map[string]struct{}, items []domain.TrendItem, maxItems int) []domain.TrendItem {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return items
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		m := musicLinkPattern.FindStringSubmatch(href)
		if m == nil {
			return true
		}

		title := decodeEscapes(s.Text())
		if title == "" {
			return true
		}

		id := m[1]
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}

		items = append(items, domain.TrendItem{
			ID:     id,
			Rank:   len(items) + 1,
			Title:  title,
			Author: "Unknown",
		})

		return len(items) < maxItems
	})

	return items
}

// countSnippet extends a fragment match to the end of its enclosing object.
func countSnippet(text string, start, end int) string {
	if i := strings.IndexByte(text[end:], '}'); i >= 0 {
		return text[start : end+i]
	}

	return text[start:end]
}

func extractPlayCount(snippet string) int64 {
	for _, p := range countPatterns {
		if m := p.FindStringSubmatch(snippet); m != nil {
			n, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				return 0
			}
			return n
		}
	}

	return 0
}

// decodeEscapes unescapes \" and \uXXXX sequences (including surrogate pairs) and trims the result.
func decodeEscapes(s string) string {
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = unicodeEscapePattern.ReplaceAllStringFunc(s, func(seq string) string {
		units := make([]uint16, 0, len(seq)/6)
		for i := 0; i+6 <= len(seq); i += 6 {
			v, err := strconv.ParseUint(seq[i+2:i+6], 16, 16)
			if err != nil {
				return seq
			}
			units = append(units, uint16(v))
		}
		return string(utf16.Decode(units))
	})

	return strings.TrimSpace(s)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}

	return s
}
