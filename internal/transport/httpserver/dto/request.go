// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

import "audio-trends-service/internal/domain"

// TrendsRequest holds query parameters for the live trend list.
type TrendsRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=200"`
}

// ListAudioRequest holds query parameters for the stored trend listing.
type ListAudioRequest struct {
	Limit  int `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset int `query:"offset" validate:"omitempty,min=0"`
}

// ToListParams converts the request to domain.ListParams.
func (r *ListAudioRequest) ToListParams() domain.ListParams {
	params := domain.ListParams{Limit: r.Limit, Offset: r.Offset}
	params.Validate()
	return params
}

// AudioRequest identifies one stored trend.
type AudioRequest struct {
	ID string `params:"id" validate:"trend_id"`
}

// HistoryRequest holds query parameters for snapshot history.
type HistoryRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}

// ClearCacheRequest selects which cached responses to drop. An empty pattern clears all.
type ClearCacheRequest struct {
	Pattern string `query:"pattern" validate:"max=200"`
}

// ResetRateLimitRequest identifies one rate-limit partition.
type ResetRateLimitRequest struct {
	Preset     string `params:"preset" validate:"required,ratelimit_preset"`
	Identifier string `params:"identifier" validate:"required,max=300"`
}
