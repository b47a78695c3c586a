package extraction

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// MinBlockLength is the length a row or line must exceed to be kept
const MinBlockLength = 50

var whitespaceRe = regexp.MustCompile(`\s+`)

var imageTypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
}

// Extract selects an extractor by file type and returns the file's text blocks.
// fileType is an extension without the leading dot; matching is case-insensitive.
func Extract(ctx context.Context, filePath, fileType string) ([]string, error) {
	fileType = strings.ToLower(strings.TrimPrefix(fileType, "."))
	slog.DebugContext(ctx, "file type detected", "type", fileType, "path", filePath)

	switch {
	case fileType == "csv":
		texts, err := ExtractCSV(filePath)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "extracted csv rows", "count", len(texts))
		return texts, nil
	case fileType == "pdf":
		texts, err := ExtractPDF(filePath)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "extracted pdf lines", "count", len(texts))
		return texts, nil
	case imageTypes[fileType]:
		return nil, &ImageNotSupportedError{FileType: fileType}
	default:
		return nil, &UnsupportedTypeError{FileType: fileType}
	}
}

// DetectFileType returns the lower-cased extension of filename without the dot
func DetectFileType(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// collapseWhitespace replaces every whitespace run with a single space and trims
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
