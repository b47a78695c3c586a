package classification

import (
	"strconv"
	"strings"

	"github.com/jonathan/brd-generator/internal/prompts"
	"github.com/jonathan/brd-generator/internal/types"
)

// BuildPrompt lists every chunk of the batch, numbered from 1 and tagged with its id.
func BuildPrompt(batch types.Batch) string {
	itemTemplate := prompts.MustGet("classification.json", "classify-item")

	items := make([]string, 0, len(batch))
	for i, c := range batch {
		items = append(items, prompts.Format(itemTemplate, map[string]string{
			"Index": strconv.Itoa(i + 1),
			"ID":    c.ChunkID,
			"Text":  c.Text,
		}))
	}

	return prompts.Format(prompts.MustGet("classification.json", "classify-batch"), map[string]string{
		"Items": strings.Join(items, "\n"),
	})
}
