package models

import (
	"time"
)

// AnalysisRecord is a stored analysis: the request that produced it and the
// response that was returned.
type AnalysisRecord struct {
	ID        string            `json:"id"`
	Analyzer  string            `json:"analyzer"`
	Input     VideoInput        `json:"input"`
	Response  *AnalysisResponse `json:"response"`
	CreatedAt time.Time         `json:"created_at"`
}

type AnalysisList struct {
	Analyses []*AnalysisRecord `json:"analyses"`
}
