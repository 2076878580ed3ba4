package domain

import (
	"math"
	"testing"
	"time"
)

const floatTolerance = 1e-9

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

func TestCalculateGrowthRate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		current  TrendItem
		previous *HistoryRow
		expected float64
	}{
		{
			name:     "new entry with no history",
			current:  TrendItem{ID: "1", Rank: 1, PlayCount: 100},
			previous: nil,
			expected: NewEntryGrowth,
		},
		{
			name:    "play count growth",
			current: TrendItem{ID: "1", Rank: 2, PlayCount: 150},
			previous: &HistoryRow{
				ID:         "1",
				PlayCount:  int64Ptr(100),
				Rank:       intPtr(5),
				SnapshotAt: now,
			},
			expected: 0.5, // (150-100)/100
		},
		{
			name:    "play count decline",
			current: TrendItem{ID: "1", Rank: 2, PlayCount: 50},
			previous: &HistoryRow{
				ID:        "1",
				PlayCount: int64Ptr(100),
			},
			expected: -0.5,
		},
		{
			name:    "falls back to rank delta when play count missing",
			current: TrendItem{ID: "1", Rank: 2, PlayCount: 0},
			previous: &HistoryRow{
				ID:        "1",
				PlayCount: int64Ptr(0),
				Rank:      intPtr(4),
			},
			expected: 0.5, // (4-2)/4
		},
		{
			name:    "rank drop is negative",
			current: TrendItem{ID: "1", Rank: 8, PlayCount: 0},
			previous: &HistoryRow{
				ID:   "1",
				Rank: intPtr(4),
			},
			expected: -1.0,
		},
		{
			name:    "null play count and rank",
			current: TrendItem{ID: "1", Rank: 3, PlayCount: 10},
			previous: &HistoryRow{
				ID: "1",
			},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateGrowthRate(tt.current, tt.previous)
			if math.Abs(got-tt.expected) > floatTolerance {
				t.Errorf("CalculateGrowthRate() = %v, want %v", got, tt.expected)
			}
		})
	}
}
