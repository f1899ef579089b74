package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/jcrafford/assay/internal/asyncop"
)

// ScriptedProvider answers from templates without any backend. It powers
// offline mode and the test suites: output is deterministic for a given
// request, so flows that depend on generated text stay reproducible.
type ScriptedProvider struct{}

// NewScriptedProvider returns the offline provider.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{}
}

// Generate synthesizes a plausible answer for the requested operation.
func (p *ScriptedProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	switch req.Operation {
	case asyncop.KindCategoryTitle:
		return Response{Content: titleFrom(req.CategoryDescription, req.CategoryTitle, "Overall Quality")}, nil
	case asyncop.KindCategoryDescription:
		return Response{Content: fmt.Sprintf(
			"Evaluates %s in the agent's responses, considering how consistently it holds up across varied inputs.",
			strings.ToLower(fallback(req.CategoryTitle, "this dimension")),
		)}, nil
	case asyncop.KindScaleTitle:
		return Response{Content: titleFrom(req.ScaleDescription, req.ScaleTitle, "Five-Point Rating")}, nil
	case asyncop.KindScaleDescription:
		return Response{Content: fmt.Sprintf(
			"Rates %s from 1 (poor) to 5 (excellent), with 3 meaning acceptable for production use.",
			strings.ToLower(fallback(req.CategoryTitle, "the category")),
		)}, nil
	case asyncop.KindAnalysis:
		return Response{Content: fmt.Sprintf(
			"Assessment of %s on %s using %s:\n\nScore: 4/5. The agent performs well on this dimension with minor lapses under ambiguous prompts.",
			fallback(req.SubjectName, "the agent"),
			fallback(req.CategoryTitle, "the selected category"),
			fallback(req.ScaleTitle, "the selected scale"),
		)}, nil
	default:
		return Response{}, fmt.Errorf("provider: unknown operation %q", req.Operation)
	}
}

// titleFrom derives a short title from the first words of a description when
// one exists, otherwise falls back through the existing title to a default.
func titleFrom(description, existing, def string) string {
	words := strings.Fields(description)
	if len(words) >= 2 {
		n := len(words)
		if n > 4 {
			n = 4
		}
		return titleCase(strings.Join(words[:n], " "))
	}
	return fallback(existing, def)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}
