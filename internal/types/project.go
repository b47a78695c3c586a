package types

import "time"

// Stage is the processing state of a project
type Stage string

// Stage constants in pipeline order
const (
	StageUploaded   Stage = "uploaded"
	StageChunked    Stage = "chunked"
	StageFiltered   Stage = "filtered"
	StageClassified Stage = "classified"
	StageGenerated  Stage = "generated"
	StageEdited     Stage = "edited"
)

// Dataset describes the input a project was built from
type Dataset struct {
	DatasetID  string   `json:"dataset_id"` // ds_<unix millis>
	FileName   string   `json:"file_name,omitempty"`
	Sources    []Source `json:"sources"`
	Timestamp  string   `json:"timestamp"` // RFC3339 format
	Hash       string   `json:"hash"`      // SHA256 hex digest of the normalized text
	BlockCount int      `json:"block_count"`
}

// Project is one pass of the pipeline over a dataset.
// The generated document is stored separately, keyed by project ID.
type Project struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	OwnerKey    string            `json:"owner_key,omitempty"`
	Stage       Stage             `json:"stage"`
	Dataset     *Dataset          `json:"dataset,omitempty"`
	TotalChunks int               `json:"total_chunks"`
	Chunks      []Chunk           `json:"chunks"`
	Dropped     []DroppedChunk    `json:"dropped,omitempty"`
	Classified  []ClassifiedChunk `json:"classified,omitempty"`
	Truncated   bool              `json:"truncated,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	Document string `json:"-"`
}

// HasDocument reports whether a BRD has been generated for the project
func (p *Project) HasDocument() bool {
	return p.Stage == StageGenerated || p.Stage == StageEdited
}
