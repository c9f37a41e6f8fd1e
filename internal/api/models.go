package api

import (
	"github.com/google/uuid"
	"github.com/nepalijets/nepalijets-api/internal/domain"
	"github.com/nepalijets/nepalijets-api/internal/domain/path"
)

// Limits on a review submission.
const (
	MaxResultsPerSubmission = 100
	MaxPathIDs              = 200
)

// SubmitReviewsRequest defines the payload of POST /api/reviews.
type SubmitReviewsRequest struct {
	// SessionID optionally names the open session that records the attempts
	SessionID *uuid.UUID `json:"sessionId"`

	// Results are validated one by one as they are applied
	Results []path.CompletedItem `json:"results" validate:"required,min=1,max=100"`

	// PathIDs is the path the client was working on, in order
	PathIDs []string `json:"pathIds" validate:"max=200,dive,required"`
}

// PathResponse is the body of GET /api/path.
type PathResponse struct {
	Items []domain.LearnableItem `json:"items"`
}

// ReviewQueueResponse is the body of GET /api/review-queue.
type ReviewQueueResponse struct {
	Items []domain.LearnableItem `json:"items"`
}

// ItemFailureResponse describes one result that could not be applied.
type ItemFailureResponse struct {
	ItemID string `json:"itemId"`
	Error  string `json:"error"`
}

// SubmitReviewsResponse is the body of POST /api/reviews.
type SubmitReviewsResponse struct {
	Path     []domain.LearnableItem `json:"path"`
	Updated  []domain.LearnableItem `json:"updated"`
	Failures []ItemFailureResponse  `json:"failures"`
}

func failuresToResponse(failures []path.ItemFailure) []ItemFailureResponse {
	out := make([]ItemFailureResponse, 0, len(failures))
	for _, f := range failures {
		out = append(out, ItemFailureResponse{ItemID: f.ItemID, Error: GetSafeErrorMessage(f.Err)})
	}
	return out
}

func nonNilItems(items []domain.LearnableItem) []domain.LearnableItem {
	if items == nil {
		return []domain.LearnableItem{}
	}
	return items
}
