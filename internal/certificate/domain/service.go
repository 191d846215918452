package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lingkodlabs/lingkod/pkg/db/pagination"
)

type SubmitRequest struct {
	RequesterAccountID string
	DocumentTypeID     snowflake.ID
	Purpose            string
	Quantity           int
}

type DecideRequest struct {
	RequestID      snowflake.ID
	Target         Status
	DeniedReason   string
	ActorAccountID string
}

type ReleaseRequest struct {
	RequestID      snowflake.ID
	ActorAccountID string
}

type ListFilter struct {
	Status     Status
	ResidentID snowflake.ID
}

type ListRequest struct {
	pagination.Pagination
	Status             string
	RequesterAccountID string
}

type ListResponse struct {
	pagination.PageInfo
	Requests []*Request `json:"requests"`
}

type Service interface {
	// Submit validates the requester and document type, allocates a control
	// number and persists a PENDING request.
	Submit(ctx context.Context, req SubmitRequest) (Request, error)

	// Decide moves a PENDING request to APPROVED or REJECTED. Approval sets
	// the issued date and enqueues certificate generation; the transition
	// returns as soon as the state write commits, never waiting on the
	// pipeline. Rejection requires a reason.
	Decide(ctx context.Context, req DecideRequest) (Request, error)

	// Release hands the printed certificate over to the claimant.
	Release(ctx context.Context, req ReleaseRequest) (Request, error)

	// Regenerate re-enqueues generation for an approved request whose
	// earlier pipeline run failed or whose artifact was superseded.
	Regenerate(ctx context.Context, requestID snowflake.ID) (Request, error)

	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Request, error)
}

// Generator runs the render-convert-store pipeline for an approved request.
// Enqueue is fire-and-forget; outcomes land on the request's generation
// fields, not on any caller.
type Generator interface {
	Enqueue(requestID snowflake.ID)
}
