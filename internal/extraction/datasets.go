package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/brd-generator/internal/types"
)

// Default row limits for the bundled dataset loaders
const (
	DefaultEmailLimit      = 50
	DefaultTranscriptLimit = 20
)

var speakerLabelRe = regexp.MustCompile(`Speaker \d+:`)

// ParseEmails loads an email dump CSV with a "message" column. Each message's
// header block (everything before the first blank line) is removed and bodies
// longer than 20 characters are kept, up to limit messages.
func ParseEmails(path string, limit int) ([]types.SourceBlock, error) {
	if limit <= 0 {
		limit = DefaultEmailLimit
	}

	records, err := readCSVRecords(path)
	if err != nil {
		return nil, err
	}

	blocks := []types.SourceBlock{}
	for _, record := range records {
		if len(blocks) >= limit {
			break
		}
		body := strings.TrimSpace(emailBody(record["message"]))
		if utf8.RuneCountInString(body) > 20 {
			blocks = append(blocks, types.SourceBlock{Source: types.SourceEmail, Text: body})
		}
	}
	return blocks, nil
}

// emailBody drops the RFC 822 header block of a raw message
func emailBody(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	_, body, found := strings.Cut(raw, "\n\n")
	if !found {
		return ""
	}
	return body
}

// ParseTranscripts loads a meeting transcript CSV with a "Transcript" column.
// Transcripts longer than 50 characters are kept with "Speaker N:" labels removed,
// up to limit transcripts.
func ParseTranscripts(path string, limit int) ([]types.SourceBlock, error) {
	if limit <= 0 {
		limit = DefaultTranscriptLimit
	}

	records, err := readCSVRecords(path)
	if err != nil {
		return nil, err
	}

	blocks := []types.SourceBlock{}
	for _, record := range records {
		if len(blocks) >= limit {
			break
		}
		text := record["Transcript"]
		if utf8.RuneCountInString(text) <= 50 {
			continue
		}
		blocks = append(blocks, types.SourceBlock{
			Source: types.SourceMeeting,
			Text:   strings.TrimSpace(speakerLabelRe.ReplaceAllString(text, "")),
		})
	}
	return blocks, nil
}
