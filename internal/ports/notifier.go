package ports

import (
	"context"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// Notifier presents finished reports to the user.
type Notifier interface {
	// Notify receives the reports of one scan, in request order.
	Notify(ctx context.Context, reports []domain.Report) error
}
