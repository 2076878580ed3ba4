package domain

// NewEntryGrowth is the growth rate assigned to an item with no recorded history.
const NewEntryGrowth = 1.0

// CalculateGrowthRate computes the momentum of current relative to its previous snapshot.
//
// Rules, in priority order:
//
//   - No previous snapshot: NewEntryGrowth
//   - Both play counts positive: (current - previous) / previous
//   - Previous rank positive: (previousRank - currentRank) / previousRank
//   - Otherwise: 0
//
// A climb in rank (smaller number) yields a positive rate.
func CalculateGrowthRate(current TrendItem, previous *HistoryRow) float64 {
	if previous == nil {
		return NewEntryGrowth
	}

	var prevPlay int64
	if previous.PlayCount != nil {
		prevPlay = *previous.PlayCount
	}
	var prevRank int
	if previous.Rank != nil {
		prevRank = *previous.Rank
	}

	if prevPlay > 0 && current.PlayCount > 0 {
		return float64(current.PlayCount-prevPlay) / float64(prevPlay)
	}

	if prevRank > 0 {
		return float64(prevRank-current.Rank) / float64(prevRank)
	}

	return 0
}
