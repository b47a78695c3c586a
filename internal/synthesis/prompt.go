package synthesis

import (
	"strings"

	"github.com/jonathan/brd-generator/internal/prompts"
)

// Fragment is anything that can contribute text to a generation prompt.
// types.Chunk and types.ClassifiedChunk both implement it.
type Fragment interface {
	PromptText() string
}

// Fragments converts a typed slice to []Fragment.
func Fragments[T Fragment](items []T) []Fragment {
	out := make([]Fragment, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// BuildPrompt renders the document prompt with the fragment texts separated by blank lines.
func BuildPrompt(fragments []Fragment) string {
	texts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		texts = append(texts, f.PromptText())
	}

	return prompts.Format(prompts.MustGet("synthesis.json", "generate-brd"), map[string]string{
		"InputData": strings.Join(texts, "\n\n"),
	})
}

func buildEditDocumentPrompt(document, change string) string {
	return prompts.Format(prompts.MustGet("synthesis.json", "edit-document"), map[string]string{
		"Document": document,
		"Change":   change,
	})
}

func buildEditSectionPrompt(section, selection, change string) string {
	return prompts.Format(prompts.MustGet("synthesis.json", "edit-section"), map[string]string{
		"Section":   section,
		"Selection": selection,
		"Change":    change,
	})
}
