package model

import "time"

// UnpersistedID marks a contract that has not been assigned identity by a store
const UnpersistedID int64 = -1

// Contract is the only entity with database-backed identity
type Contract struct {
	ID        int64            `json:"id"`
	Filename  string           `json:"filename,omitempty"`
	Text      string           `json:"text"`
	Metadata  DocumentMetadata `json:"metadata"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewContract creates a contract that has not been persisted yet
func NewContract(filename, text string, metadata DocumentMetadata) Contract {
	return Contract{
		ID:        UnpersistedID,
		Filename:  filename,
		Text:      text,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}

// Persisted reports whether a store has assigned identity
func (c Contract) Persisted() bool {
	return c.ID != UnpersistedID
}

// DocumentMetadata is derived from contract text alone
type DocumentMetadata struct {
	FileSize      int               `json:"fileSize"`
	PageCount     int               `json:"pageCount"`
	WordCount     int               `json:"wordCount"`
	DetectedDates []string          `json:"detectedDates"`
	Parties       []string          `json:"parties"`
	GoverningLaw  *string           `json:"governingLaw"`
	Venue         *string           `json:"venue"`
	Definitions   map[string]string `json:"definitions"`
	SLAReferences []string          `json:"slaReferences"`
}
