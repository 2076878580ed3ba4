// Command proxygrid is a local stand-in for the proxy-grid search endpoint.
//
// Environment:
//
//	MOCK_ADDR       listen address (default :8081)
//	MOCK_SECRET     required x-grid-secret value (default: none)
//	MOCK_MODE       json | html | empty (default json)
//	MOCK_FAIL_EVERY fail every Nth request with 502 (default 0, never)
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
)

type record struct {
	ID        string `json:"id"`
	Rank      int    `json:"rank"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	PlayCount int64  `json:"play_count"`
	Cover     string `json:"cover"`
}

var titles = []string{
	"Espresso", "Midnight Drive", "Lo-fi Rain", "Sped Up Summer", "Dance Loop",
	"Acoustic Morning", "Phonk Drift", "Y2K Throwback", "Cinematic Rise", "Bedroom Pop",
}

func records(now time.Time) []record {
	// Play counts drift with the clock so successive refreshes show growth
	drift := now.Unix() / 60 % 1000

	out := make([]record, 0, len(titles)+1)
	for i, title := range titles {
		out = append(out, record{
			ID:        strconv.Itoa(7200000000000000000 + i),
			Rank:      i + 1,
			Title:     title,
			Author:    fmt.Sprintf("Artist %d", i+1),
			PlayCount: int64(1_000_000/(i+1)) + drift*int64(10-i),
			Cover:     fmt.Sprintf("https://cdn.example.com/covers/%d.jpg", i),
		})
	}

	// Duplicate of the first entry; the fetcher keeps only one
	out = append(out, out[0])

	return out
}

func html(now time.Time) string {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for _, r := range records(now)[:len(titles)] {
		fmt.Fprintf(&sb, `<a href="/music/%s-%s">%s</a>`, strings.ReplaceAll(r.Title, " ", "-"), r.ID, r.Title)
	}
	sb.WriteString("</body></html>")

	return sb.String()
}

func main() {
	addr := envOr("MOCK_ADDR", ":8081")
	secret := os.Getenv("MOCK_SECRET")
	mode := envOr("MOCK_MODE", "json")
	failEvery, _ := strconv.Atoi(os.Getenv("MOCK_FAIL_EVERY"))

	var requests atomic.Int64

	http.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		n := requests.Add(1)

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if secret != "" && r.Header.Get("x-grid-secret") != secret {
			w.WriteHeader(http.StatusUnauthorized)
			log.Printf("[proxygrid] request %d rejected: bad secret", n)
			return
		}
		if failEvery > 0 && n%int64(failEvery) == 0 {
			w.WriteHeader(http.StatusBadGateway)
			log.Printf("[proxygrid] request %d - 502 (injected)", n)
			return
		}

		// Simulate upstream latency (50-200ms)
		time.Sleep(time.Duration(50+time.Now().UnixNano()%150) * time.Millisecond)

		now := time.Now()
		switch mode {
		case "html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(html(now)))
		case "empty":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[]}`))
		default:
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(map[string]any{"data": records(now)}); err != nil {
				log.Printf("[proxygrid] write error: %v", err)
			}
		}

		log.Printf("[proxygrid] request %d %s %s - 200 (%s)", n, r.Method, r.URL.Path, mode)
	})

	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	log.Printf("mock proxy-grid running on %s (mode=%s)", addr, mode)
	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
