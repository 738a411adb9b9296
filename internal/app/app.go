package app

import (
	"context"
	"fmt"
	"time"

	"facearchiver/internal/config"
	"facearchiver/internal/logger"
	"facearchiver/internal/models"
	"facearchiver/internal/pipeline"
	"facearchiver/internal/preview"
	"facearchiver/internal/repository"
	"facearchiver/internal/repository/sqlite"
	"facearchiver/internal/vision"
)

type App struct {
	config     *config.Config
	log        *logger.Logger
	db         *sqlite.DB
	runs       repository.RunRepository
	detections repository.DetectionRepository
	detector   vision.Detector
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open run index: %w", err)
	}

	return &App{
		config:     cfg,
		log:        log,
		db:         db,
		runs:       sqlite.NewRunRepository(db),
		detections: sqlite.NewDetectionRepository(db),
		detector:   vision.NewClient(cfg.VisionEndpoint, cfg.VisionAPIKey, log),
	}, nil
}

// Run drives one image through the full pipeline: detect, crop, annotate,
// archive, then index the run. Every stage failure is fatal to the run.
func (a *App) Run(ctx context.Context, imagePath, archiveDir string) error {
	if archiveDir == "" {
		archiveDir = a.config.ArchiveDir
	}

	p := pipeline.New(imagePath, archiveDir, a.config.Debug, a.detector, a.log)
	defer p.Close()

	if err := p.FindItems(ctx); err != nil {
		return err
	}
	p.ExtractItemFrames()

	crops, err := p.ItemFrames(a.config.GrayscaleCrops)
	if err != nil {
		return err
	}
	for _, crop := range crops {
		if err := p.AddLabel("face", crop.X, crop.Y); err != nil {
			return err
		}
	}

	if err := p.ArchiveItemFrames(); err != nil {
		return err
	}
	if err := p.ArchiveWithItems(); err != nil {
		return err
	}

	if err := a.indexRun(p, imagePath, archiveDir); err != nil {
		return err
	}

	if a.config.Debug && a.config.PreviewAddr != "" {
		return a.servePreview(p)
	}
	return nil
}

// indexRun records the run and its detections in the SQLite index.
func (a *App) indexRun(p *pipeline.Pipeline, imagePath, archiveDir string) error {
	items := p.Items()

	runID, err := a.runs.Insert(&models.Run{
		Prefix:     p.Prefix(),
		SourcePath: imagePath,
		ArchiveDir: archiveDir,
		FaceCount:  len(items),
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return err
	}

	detections := make([]models.Detection, 0, len(items))
	for _, it := range items {
		detections = append(detections, models.Detection{
			RunID:  runID,
			X:      it.X,
			Y:      it.Y,
			Width:  it.Width,
			Height: it.Height,
		})
	}
	return a.detections.InsertBatch(runID, detections)
}

// servePreview publishes the annotated frame to websocket clients and blocks
// serving them, the headless equivalent of the preview window.
func (a *App) servePreview(p *pipeline.Pipeline) error {
	jpeg, err := p.AnnotatedJPEG()
	if err != nil {
		return err
	}

	server := preview.NewServer(a.config.PreviewAddr, a.log)
	if err := server.Publish(jpeg); err != nil {
		return err
	}
	return server.ListenAndServe()
}

func (a *App) Close() error {
	return a.db.Close()
}
