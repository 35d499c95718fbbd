package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nijaru/swing-analysis/errors"
	"github.com/nijaru/swing-analysis/metrics"
	"github.com/nijaru/swing-analysis/models"
	"github.com/nijaru/swing-analysis/repository"
	"github.com/nijaru/swing-analysis/validation"
	"github.com/sirupsen/logrus"
)

// Service runs an analyzer and keeps a history of its results. History and
// archiving are optional and best-effort: their failures are logged and
// counted but never fail an analysis.
type Service struct {
	analyzer  SwingAnalyzer
	validator *validation.Validator
	repo      repository.AnalysisRepository
	archiver  Archiver
	metrics   *metrics.Metrics
	config    Config
	logger    *logrus.Logger

	// uploads tracks archive goroutines still in flight.
	uploads sync.WaitGroup
}

type Option func(*Service)

func WithRepository(repo repository.AnalysisRepository) Option {
	return func(s *Service) {
		s.repo = repo
	}
}

func WithArchiver(archiver Archiver) Option {
	return func(s *Service) {
		s.archiver = archiver
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(analyzer SwingAnalyzer, validator *validation.Validator, config Config, opts ...Option) *Service {
	s := &Service{
		analyzer:  analyzer,
		validator: validator,
		config:    config,
		logger:    logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) AnalyzerName() string {
	return s.analyzer.Name()
}

// HistoryEnabled reports whether analyses are being recorded.
func (s *Service) HistoryEnabled() bool {
	return s.repo != nil
}

// Analyze runs the analyzer on an already validated input.
func (s *Service) Analyze(ctx context.Context, input models.VideoInput) (*models.AnalysisRecord, error) {
	const op = "AnalysisService.Analyze"
	logger := s.logger.WithFields(logrus.Fields{
		"operation": op,
		"video_url": input.VideoURL,
		"analyzer":  s.analyzer.Name(),
	})

	resp, err := s.analyzer.Analyze(ctx, input)
	if err != nil {
		logger.WithError(err).Error("Analyzer failed")
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.Internal(op, err, "Analysis failed")
	}

	resp, err = s.validator.SerializeResponse(resp)
	if err != nil {
		logger.WithError(err).Error("Analyzer produced an invalid response")
		return nil, err
	}

	record := &models.AnalysisRecord{
		ID:        uuid.New().String(),
		Analyzer:  s.analyzer.Name(),
		Input:     input,
		Response:  resp,
		CreatedAt: time.Now().UTC(),
	}
	s.metrics.ObserveAnalysis(record.Analyzer)

	logger = logger.WithField("analysis_id", record.ID)
	s.record(ctx, record, logger)
	s.archive(ctx, record, logger)

	logger.Info("Analysis completed")
	return record, nil
}

func (s *Service) record(ctx context.Context, record *models.AnalysisRecord, logger *logrus.Entry) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, record); err != nil {
		s.metrics.ObservePersistError(metrics.SinkHistory)
		logger.WithError(err).Warn("Failed to record analysis")
	}
}

// archive uploads the record in the background. The upload outlives a
// disconnected client but not the archive timeout.
func (s *Service) archive(ctx context.Context, record *models.AnalysisRecord, logger *logrus.Entry) {
	if s.archiver == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ArchiveTimeout)
	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()
		defer cancel()

		if err := s.archiver.Archive(ctx, record); err != nil {
			s.metrics.ObservePersistError(metrics.SinkArchive)
			logger.WithError(err).Warn("Failed to archive analysis")
			return
		}
		logger.Debug("Analysis archived")
	}()
}

// Wait blocks until every pending archive upload has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.uploads.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) Get(ctx context.Context, id string) (*models.AnalysisRecord, error) {
	const op = "AnalysisService.Get"

	if id == "" {
		return nil, errors.InvalidInput(op, nil, "ID is required")
	}
	if s.repo == nil {
		return nil, errors.NotFound(op, nil, "Analysis history is disabled")
	}

	return s.repo.Find(ctx, id)
}

// ListRecent returns the newest analyses first. A non-positive limit selects
// the default and larger limits are capped.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	const op = "AnalysisService.ListRecent"

	if s.repo == nil {
		return nil, errors.NotFound(op, nil, "Analysis history is disabled")
	}

	switch {
	case limit <= 0:
		limit = s.config.DefaultListLimit
	case s.config.MaxListLimit > 0 && limit > s.config.MaxListLimit:
		limit = s.config.MaxListLimit
	}

	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*models.AnalysisRecord{}
	}
	return records, nil
}
