package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alejandrodnm/flipscan/internal/domain"
)

// JSONLines implements ports.Notifier by writing one JSON document per report.
type JSONLines struct {
	enc *json.Encoder
}

// NewJSONLines builds a notifier that writes to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

// Notify encodes reports in order.
func (j *JSONLines) Notify(_ context.Context, reports []domain.Report) error {
	for _, r := range reports {
		if err := j.enc.Encode(r); err != nil {
			return fmt.Errorf("notify.JSONLines: encode %s: %w", r.Key, err)
		}
	}
	return nil
}
