package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Composer assembles analysis output into Result records. Composition is the
// only place result IDs and lineage links are minted, so a rerun can never
// mutate a prior record: it always produces a new Result whose RerunOf points
// at the immediately preceding one.
type Composer struct {
	NewID func() string
	Clock func() time.Time
}

// Compose builds a Result for the given pairing. prior may be nil for the
// first run of a session.
func (c Composer) Compose(categoryID, scaleID, content string, prior *Result) Result {
	newID := c.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	clock := c.Clock
	if clock == nil {
		clock = time.Now
	}
	result := Result{
		ID:          newID(),
		CategoryID:  categoryID,
		ScaleID:     scaleID,
		Content:     content,
		GeneratedAt: clock(),
	}
	if prior != nil {
		result.RerunOf = prior.ID
	}
	return result
}
