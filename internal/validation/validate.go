package validation

import "github.com/jonathan/brd-generator/internal/types"

// Options tunes Validate. Zero values take the package defaults.
type Options struct {
	MaxBullets       int
	ForbiddenPhrases []string
}

// Validate runs every document check and returns the findings in check order:
// structure, bullet counts, requirement wording, then forbidden phrases.
func Validate(document string, opts Options) *types.Violations {
	phrases := opts.ForbiddenPhrases
	if phrases == nil {
		phrases = DefaultForbiddenPhrases
	}

	all := []types.Violation{}
	all = append(all, CheckStructure(document)...)
	all = append(all, CheckBulletCounts(document, opts.MaxBullets)...)
	all = append(all, CheckRequirements(document)...)
	all = append(all, CheckForbiddenPhrases(document, phrases)...)
	return &types.Violations{Violations: all}
}
