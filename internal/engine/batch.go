package engine

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"powerpilot/internal/actionable"
)

// Batch is the wire form of one ordered instruction batch from the
// recommendation service.
type Batch struct {
	ID      string              `json:"batch_id,omitempty"`
	Records []actionable.Record `json:"actionables"`
}

// DecodeBatch parses a batch from JSON. A missing batch ID gets a fresh
// UUID so every audit entry stays attributable to one ingest. Record
// contents are not validated here; closed-world validation is the
// coordinator's first step, per record.
func DecodeBatch(r io.Reader) (Batch, error) {
	var b Batch
	dec := json.NewDecoder(r)
	if err := dec.Decode(&b); err != nil {
		return Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return b, nil
}
