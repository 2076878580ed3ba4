package domain

const (
	// DefaultListLimit is used when a caller does not ask for a specific size.
	DefaultListLimit = 50

	// MaxListLimit caps how many stored trends a single listing returns.
	MaxListLimit = 200

	// DefaultHistoryLimit bounds the snapshots returned for one item.
	DefaultHistoryLimit = 20
)

// ListParams holds paging parameters for stored trend listings.
type ListParams struct {
	Limit  int
	Offset int
}

// Validate clamps params into acceptable bounds. This is bound correction, not validation.
func (p *ListParams) Validate() {
	if p.Limit < 1 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}
