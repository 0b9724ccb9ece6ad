// Package api holds the wire types exchanged with the DataVista frontend.
package api

import (
	"time"

	"github.com/google/uuid"
)

// Session describes a session and what it currently holds.
type Session struct {
	Id           uuid.UUID `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	DatasetName  string    `json:"dataset_name,omitempty"`
	DatasetRows  int       `json:"dataset_rows,omitempty"`
	HasProfile   bool      `json:"has_profile"`
	HasNarrative bool      `json:"has_narrative"`
}

// Chart is an encoded chart image; PNG is base64 in transit.
type Chart struct {
	Caption string `json:"caption"`
	PNG     []byte `json:"png"`
}

type ChartsResponse struct {
	Charts []Chart `json:"charts"`
}

// NarrativeRequest selects how the narrative is produced. With Fallback set
// the locally rendered summary is stored instead of calling the provider.
type NarrativeRequest struct {
	Fallback bool `json:"fallback"`
}

const (
	NarrativeSourceModel    = "model"
	NarrativeSourceFallback = "fallback"
)

type NarrativeResponse struct {
	Narrative string `json:"narrative"`
	Source    string `json:"source"`
}
