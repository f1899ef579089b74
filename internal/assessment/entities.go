package assessment

import "time"

// Origin records whether an entity was typed in by the user or produced by
// the provider collaborator.
type Origin string

const (
	OriginUserAuthored Origin = "user_authored"
	OriginGenerated    Origin = "generated"
)

// Category is a named evaluation axis under assessment.
type Category struct {
	ID          string
	Title       string
	Description string
	Origin      Origin
}

// Scale is a rubric definition attached to a committed Category. Multiple
// scales may belong to one category.
type Scale struct {
	ID          string
	CategoryID  string
	Title       string
	Description string
	Origin      Origin
}

// Result is the output of running an analysis against a Category/Scale pair.
// RerunOf is a back-reference to the result this run superseded; it carries
// lineage for display and audit, never ownership.
type Result struct {
	ID          string
	CategoryID  string
	ScaleID     string
	Content     string
	GeneratedAt time.Time
	RerunOf     string
}
