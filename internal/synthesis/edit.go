package synthesis

import (
	"context"
	"strings"
)

// EditDocument applies a change to the whole document and returns the rewritten BRD.
func (s *Synthesizer) EditDocument(ctx context.Context, document, change string) (*Document, error) {
	if strings.TrimSpace(change) == "" {
		return nil, ErrEmptyChange
	}

	s.log.InfoContext(ctx, "editing document", "change", change)
	return s.complete(ctx, buildEditDocumentPrompt(document, change), s.opts.EditTemperature, s.opts.MaxOutputTokens, "document edit")
}

// EditSection rewrites the first section containing selection and splices it back.
// Only that section is sent to the model.
func (s *Synthesizer) EditSection(ctx context.Context, document, selection, change string) (*Document, error) {
	sections := SplitSections(document)
	index := LocateSection(sections, selection)
	if index < 0 {
		return nil, &SectionNotFoundError{Selection: selection, Index: -1}
	}
	return s.editSection(ctx, sections, index, selection, change)
}

// EditSectionAt rewrites the section at index, as numbered by SplitSections.
func (s *Synthesizer) EditSectionAt(ctx context.Context, document string, index int, change string) (*Document, error) {
	sections := SplitSections(document)
	if index < 0 || index >= len(sections) {
		return nil, &SectionNotFoundError{Index: index}
	}
	return s.editSection(ctx, sections, index, strings.TrimSpace(sections[index]), change)
}

func (s *Synthesizer) editSection(ctx context.Context, sections []string, index int, selection, change string) (*Document, error) {
	if strings.TrimSpace(change) == "" {
		return nil, ErrEmptyChange
	}

	s.log.InfoContext(ctx, "editing section", "section", index, "change", change)
	prompt := buildEditSectionPrompt(sections[index], selection, change)
	edited, err := s.complete(ctx, prompt, s.opts.EditTemperature, s.opts.SectionMaxOutputTokens, "section edit")
	if err != nil {
		return nil, err
	}

	edited.Content = splice(sections, index, edited.Content)
	return edited, nil
}
