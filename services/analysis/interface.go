package analysis

import (
	"context"
	"time"

	"github.com/nijaru/swing-analysis/models"
)

// SwingAnalyzer turns a validated video reference into an analysis.
// Implementations must be safe for concurrent use.
type SwingAnalyzer interface {
	Name() string
	Analyze(ctx context.Context, video models.VideoInput) (*models.AnalysisResponse, error)
}

// Archiver copies finished analyses to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, record *models.AnalysisRecord) error
}

type Config struct {
	// ArchiveTimeout bounds a single archive upload
	ArchiveTimeout time.Duration `json:"archive_timeout"`

	DefaultListLimit int `json:"default_list_limit"`
	MaxListLimit     int `json:"max_list_limit"`
}

func DefaultConfig() Config {
	return Config{
		ArchiveTimeout:   10 * time.Second,
		DefaultListLimit: 20,
		MaxListLimit:     100,
	}
}
