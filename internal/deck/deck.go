// Package deck supplies the preset categories and scales the picker offers.
// A built-in deck ships with the binary; projects can add their own decks as
// YAML files under .assay/decks/ and they appear alongside the defaults.
package deck

import (
	"fmt"
	"strings"
)

// Preset is one selectable entry in a picker. Selecting it seeds the editor;
// the user can still rewrite every field before committing.
type Preset struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
}

// Deck is a named collection of category and scale presets.
type Deck struct {
	Name       string   `yaml:"name"`
	Categories []Preset `yaml:"categories,omitempty"`
	Scales     []Preset `yaml:"scales,omitempty"`
}

// Validate checks that the deck is usable: it needs a name and every preset
// needs a title.
func (d Deck) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("deck: name is required")
	}
	if len(d.Categories) == 0 && len(d.Scales) == 0 {
		return fmt.Errorf("deck: %s has no presets", d.Name)
	}
	for i, p := range d.Categories {
		if strings.TrimSpace(p.Title) == "" {
			return fmt.Errorf("deck: %s categories[%d]: title is required", d.Name, i)
		}
	}
	for i, p := range d.Scales {
		if strings.TrimSpace(p.Title) == "" {
			return fmt.Errorf("deck: %s scales[%d]: title is required", d.Name, i)
		}
	}
	return nil
}

// Normalized returns a copy with whitespace trimmed on every field.
func (d Deck) Normalized() Deck {
	out := Deck{Name: strings.TrimSpace(d.Name)}
	for _, p := range d.Categories {
		out.Categories = append(out.Categories, Preset{
			Title:       strings.TrimSpace(p.Title),
			Description: strings.TrimSpace(p.Description),
		})
	}
	for _, p := range d.Scales {
		out.Scales = append(out.Scales, Preset{
			Title:       strings.TrimSpace(p.Title),
			Description: strings.TrimSpace(p.Description),
		})
	}
	return out
}

// BuiltIn returns the deck that ships with assay. It is regenerated on every
// call so callers can mutate their copy freely.
func BuiltIn() Deck {
	return Deck{
		Name: "standard",
		Categories: []Preset{
			{Title: "Clarity", Description: "How clearly the agent communicates, avoiding jargon and ambiguity."},
			{Title: "Accuracy", Description: "Whether the agent's factual claims and calculations hold up."},
			{Title: "Consistency", Description: "Whether answers stay coherent across rephrasings of the same question."},
			{Title: "Tone", Description: "Whether the register suits the audience and stays steady under pressure."},
			{Title: "Completeness", Description: "Whether answers cover the whole question instead of the easy part."},
		},
		Scales: []Preset{
			{Title: "Five-point", Description: "1 (poor) to 5 (excellent), 3 is acceptable for production."},
			{Title: "Pass/Fail", Description: "Binary judgement against a stated bar."},
			{Title: "Percentile", Description: "Standing relative to a reference population of agents."},
		},
	}
}
