package repository

import (
	"context"

	"github.com/nijaru/swing-analysis/models"
)

// AnalysisRepository stores analyses for later retrieval.
type AnalysisRepository interface {
	Save(ctx context.Context, record *models.AnalysisRecord) error
	Find(ctx context.Context, id string) (*models.AnalysisRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRecord, error)
}
