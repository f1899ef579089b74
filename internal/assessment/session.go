package assessment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the sole ownership root for the entities of one assessment
// walkthrough: at most one active category, the scales attached to it, and
// the results produced so far. Entities never outlive the session and are
// discarded on Reset; archived copies are the history collaborator's concern.
type Session struct {
	newID func() string
	clock func() time.Time

	category  *Category
	committed bool
	scales    []Scale
	staged    *Scale
	results   []Result
}

// SessionOption customizes a Session during construction.
type SessionOption func(*Session)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithIDSource overrides the entity ID generator.
func WithIDSource(newID func() string) SessionOption {
	return func(s *Session) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewSession returns an empty session.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		newID: uuid.NewString,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StageCategory installs a fresh editable category, replacing any staged one.
// An empty description is fine while editing; the title is only enforced at
// commit time.
func (s *Session) StageCategory(title, description string, origin Origin) *Category {
	s.category = &Category{
		ID:          s.newID(),
		Title:       title,
		Description: description,
		Origin:      origin,
	}
	s.committed = false
	s.scales = nil
	s.staged = nil
	return s.copyCategory()
}

// SetCategoryTitle mutates the staged category in place.
func (s *Session) SetCategoryTitle(title string) error {
	if err := s.editableCategory(); err != nil {
		return err
	}
	s.category.Title = title
	return nil
}

// SetCategoryDescription mutates the staged category in place.
func (s *Session) SetCategoryDescription(description string) error {
	if err := s.editableCategory(); err != nil {
		return err
	}
	s.category.Description = description
	return nil
}

func (s *Session) editableCategory() error {
	if s.category == nil {
		return fmt.Errorf("assessment: no category staged")
	}
	if s.committed {
		return fmt.Errorf("assessment: category %s is committed and immutable", s.category.ID)
	}
	return nil
}

// CommitCategory freezes the staged category. Scales can only attach to a
// committed category.
func (s *Session) CommitCategory() error {
	if s.category == nil {
		return fmt.Errorf("assessment: no category staged")
	}
	if s.category.Title == "" {
		return fmt.Errorf("assessment: category title is required")
	}
	s.committed = true
	return nil
}

// DiscardCategory drops the staged category and everything attached to it.
func (s *Session) DiscardCategory() {
	s.category = nil
	s.committed = false
	s.scales = nil
	s.staged = nil
}

// CategoryCommitted reports whether the active category has been committed.
func (s *Session) CategoryCommitted() bool {
	return s.category != nil && s.committed
}

// Category returns a copy of the active category, or nil.
func (s *Session) Category() *Category {
	return s.copyCategory()
}

func (s *Session) copyCategory() *Category {
	if s.category == nil {
		return nil
	}
	c := *s.category
	return &c
}

// StageScale installs a fresh editable scale bound to the committed category.
func (s *Session) StageScale(title, description string, origin Origin) (*Scale, error) {
	if !s.CategoryCommitted() {
		return nil, fmt.Errorf("assessment: scales require a committed category")
	}
	s.staged = &Scale{
		ID:          s.newID(),
		CategoryID:  s.category.ID,
		Title:       title,
		Description: description,
		Origin:      origin,
	}
	sc := *s.staged
	return &sc, nil
}

// SetScaleTitle mutates the staged scale in place.
func (s *Session) SetScaleTitle(title string) error {
	if s.staged == nil {
		return fmt.Errorf("assessment: no scale staged")
	}
	s.staged.Title = title
	return nil
}

// SetScaleDescription mutates the staged scale in place.
func (s *Session) SetScaleDescription(description string) error {
	if s.staged == nil {
		return fmt.Errorf("assessment: no scale staged")
	}
	s.staged.Description = description
	return nil
}

// StagedScale returns a copy of the scale under edit, or nil.
func (s *Session) StagedScale() *Scale {
	if s.staged == nil {
		return nil
	}
	sc := *s.staged
	return &sc
}

// CommitScale freezes the staged scale and appends it to the session.
func (s *Session) CommitScale() error {
	if s.staged == nil {
		return fmt.Errorf("assessment: no scale staged")
	}
	if s.staged.Title == "" {
		return fmt.Errorf("assessment: scale title is required")
	}
	s.scales = append(s.scales, *s.staged)
	s.staged = nil
	return nil
}

// DiscardScale drops the staged scale without touching committed ones.
func (s *Session) DiscardScale() {
	s.staged = nil
}

// Scales returns copies of the committed scales in commit order.
func (s *Session) Scales() []Scale {
	if len(s.scales) == 0 {
		return nil
	}
	out := make([]Scale, len(s.scales))
	copy(out, s.scales)
	return out
}

// RecordResult composes a new result for the active category/scale pair and
// appends it to the session history. Earlier results are superseded, never
// deleted, so rerun lineage stays walkable.
func (s *Session) RecordResult(content string) (Result, error) {
	if !s.CategoryCommitted() {
		return Result{}, fmt.Errorf("assessment: analysis requires a committed category")
	}
	if len(s.scales) == 0 {
		return Result{}, fmt.Errorf("assessment: analysis requires at least one scale")
	}
	composer := Composer{NewID: s.newID, Clock: s.clock}
	result := composer.Compose(s.category.ID, s.scales[0].ID, content, s.lastResult())
	s.results = append(s.results, result)
	return result, nil
}

// LastResult returns a copy of the most recent result, or nil.
func (s *Session) LastResult() *Result {
	last := s.lastResult()
	if last == nil {
		return nil
	}
	r := *last
	return &r
}

func (s *Session) lastResult() *Result {
	if len(s.results) == 0 {
		return nil
	}
	return &s.results[len(s.results)-1]
}

// Results returns copies of every result recorded this session, oldest first.
func (s *Session) Results() []Result {
	if len(s.results) == 0 {
		return nil
	}
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// Reset discards the active category, its scales, and the result history.
func (s *Session) Reset() {
	s.DiscardCategory()
	s.results = nil
}
