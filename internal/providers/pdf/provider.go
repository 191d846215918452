package pdf

import (
	"context"
	"io"
)

// Provider produces the printable companion artifacts of the issuance flow.
// The certificate itself is rendered from the uploaded DOCX template; claim
// slips are composed here from scratch.
type Provider interface {
	GenerateClaimSlip(ctx context.Context, data ClaimSlipData) (io.Reader, error)
}

type ClaimSlipData struct {
	ControlNumber string
	ResidentName  string
	DocumentName  string
	ReleasedBy    string
	ClaimDate     string
}
