// Package provider abstracts the model backend that fills in generated text.
// The workflow machine never talks to a provider directly; the TUI turns a
// started operation into a Request, runs it through a Provider off the event
// loop, and feeds the outcome back in as a completion event.
package provider

import (
	"context"

	"github.com/jcrafford/assay/internal/asyncop"
)

// Request carries everything a backend needs to produce one piece of text.
// Category and Scale are the user's current drafts so the backend can ground
// its suggestion in what is already written.
type Request struct {
	Operation           asyncop.Kind `json:"operation"`
	SubjectName         string       `json:"subject_name,omitempty"`
	SubjectRole         string       `json:"subject_role,omitempty"`
	CategoryTitle       string       `json:"category_title,omitempty"`
	CategoryDescription string       `json:"category_description,omitempty"`
	ScaleTitle          string       `json:"scale_title,omitempty"`
	ScaleDescription    string       `json:"scale_description,omitempty"`
}

// Response is the backend's answer. Content is used verbatim; the caller is
// responsible for deciding which field of which entity it lands in.
type Response struct {
	Content string `json:"content"`
}

// Provider produces generated text for a single request. Implementations must
// honor ctx cancellation; a pending call whose context is cancelled should
// return ctx.Err() promptly.
type Provider interface {
	Generate(ctx context.Context, req Request) (Response, error)
}
