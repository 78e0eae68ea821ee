package ports

import (
	"context"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// Advisor produces an opaque risk assessment for one commodity. Its output is
// reported alongside the analysis and never changes it.
type Advisor interface {
	Advise(ctx context.Context, req domain.AdvisoryRequest) (domain.Advisory, error)
}
