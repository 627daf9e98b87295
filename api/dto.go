/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Affiliate:  AffiliateDTO, CreateAffiliateRequest
  Status log: StatusEntryDTO, SetStatusRequest
  Awards:     AwardDTO, DeltaDTO, PointsDTO
  Rules:      catalog.RuleJSON is used directly as the rule DTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - catalog/catalog.go: RuleJSON type
*/
package api

import (
	"time"

	"github.com/warp/achievement-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// AffiliateDTO represents an affiliate in API responses.
type AffiliateDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	JoinedAt  string `json:"joined_at"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateAffiliateRequest is the request to create an affiliate.
type CreateAffiliateRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	JoinedAt string `json:"joined_at,omitempty"`
}

// StatusEntryDTO is one recorded day in the status log.
type StatusEntryDTO struct {
	Date      string `json:"date"`
	StatusKey string `json:"status_key"`
}

// SetStatusRequest is the request to record a day's status.
type SetStatusRequest struct {
	StatusKey string `json:"status_key"`
}

// AwardDTO represents one granted award.
type AwardDTO struct {
	ID        string `json:"id"`
	RuleID    string `json:"rule_id"`
	PeriodTag string `json:"period_tag,omitempty"`
	Points    int    `json:"points"`
	AwardedAt string `json:"awarded_at"`
}

// DeltaDTO reports what one evaluation pass changed.
type DeltaDTO struct {
	Added       []AwardDTO `json:"added"`
	Removed     []AwardDTO `json:"removed"`
	TotalPoints int        `json:"total_points"`
}

// PointsDTO is an affiliate's current point total.
type PointsDTO struct {
	AffiliateID string `json:"affiliate_id"`
	TotalPoints int    `json:"total_points"`
}

// RecheckRequest asks for a manual re-evaluation. An empty affiliate_id
// rechecks everyone.
type RecheckRequest struct {
	AffiliateID string `json:"affiliate_id,omitempty"`
}

// RecheckResponse summarizes a manual re-evaluation.
type RecheckResponse struct {
	Checked int `json:"checked"`
	Changed int `json:"changed"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toAwardDTO(a engine.AwardRecord) AwardDTO {
	return AwardDTO{
		ID:        string(a.ID),
		RuleID:    string(a.RuleID),
		PeriodTag: a.PeriodTag,
		Points:    a.Points,
		AwardedAt: a.AwardedAt.UTC().Format(time.RFC3339),
	}
}

func toAwardDTOs(records []engine.AwardRecord) []AwardDTO {
	dtos := make([]AwardDTO, len(records))
	for i, a := range records {
		dtos[i] = toAwardDTO(a)
	}
	return dtos
}

func toDeltaDTO(d engine.Delta, totalPoints int) DeltaDTO {
	return DeltaDTO{
		Added:       toAwardDTOs(d.ToAdd),
		Removed:     toAwardDTOs(d.ToRemove),
		TotalPoints: totalPoints,
	}
}
