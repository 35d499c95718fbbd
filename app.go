package main

import (
	"context"
	"io"

	"github.com/nijaru/swing-analysis/config"
	"github.com/nijaru/swing-analysis/logger"
	"github.com/nijaru/swing-analysis/metrics"
	"github.com/nijaru/swing-analysis/repository/sqlite"
	"github.com/nijaru/swing-analysis/services/analysis"
	"github.com/nijaru/swing-analysis/storage"
	"github.com/nijaru/swing-analysis/validation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

// app holds the collaborators shared by the serve and analyze commands.
type app struct {
	cfg       *config.Config
	logger    *logrus.Logger
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	validator *validation.Validator
	service   *analysis.Service
	db        *sqlite.DB
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	log, err := logger.New(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &app{
		cfg:       cfg,
		logger:    log,
		registry:  registry,
		metrics:   metrics.NewMetrics(registry),
		validator: validation.NewValidator(),
	}

	opts := []analysis.Option{
		analysis.WithMetrics(a.metrics),
		analysis.WithLogger(log),
	}

	if cfg.Database.Enabled() {
		dbConfig := sqlite.DefaultDBConfig()
		dbConfig.MaxConnections = cfg.Database.MaxConnections
		dbConfig.MaxIdleConnections = cfg.Database.MaxIdleConnections
		dbConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime

		a.db, err = sqlite.Open(ctx, cfg.Database.Path, dbConfig)
		if err != nil {
			return nil, err
		}

		repo, err := sqlite.NewRepository(a.db)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, analysis.WithRepository(repo))
		log.WithField("path", cfg.Database.Path).Info("Analysis history enabled")
	}

	if cfg.Spaces.Enabled() {
		client, err := storage.NewSpacesClient(ctx, cfg.Spaces)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, analysis.WithArchiver(client))
		log.WithField("bucket", cfg.Spaces.Bucket).Info("Analysis archive enabled")
	}

	a.service = analysis.NewService(analysis.NewPlaceholder(), a.validator, analysis.Config{
		ArchiveTimeout:   cfg.Analysis.ArchiveTimeout,
		DefaultListLimit: cfg.Analysis.DefaultListLimit,
		MaxListLimit:     cfg.Analysis.MaxListLimit,
	}, opts...)

	return a, nil
}

// Close waits for pending archive uploads, then closes the database.
func (a *app) Close() error {
	if a.service != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Analysis.ArchiveTimeout)
		defer cancel()
		if err := a.service.Wait(ctx); err != nil {
			a.logger.WithError(err).Warn("Archive uploads still pending")
		}
	}

	if a.db == nil {
		return nil
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Database shutdown error")
		return err
	}
	return nil
}
