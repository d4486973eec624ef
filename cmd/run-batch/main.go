package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/avolkov/cardbatch/internal/config"
	"github.com/avolkov/cardbatch/internal/controller"
	"github.com/avolkov/cardbatch/internal/detect"
	"github.com/avolkov/cardbatch/internal/domain"
	"github.com/avolkov/cardbatch/internal/jobs/inmemory"
	"github.com/avolkov/cardbatch/internal/logger"
	"github.com/avolkov/cardbatch/internal/notify"
	"github.com/avolkov/cardbatch/internal/refdata"
	"github.com/avolkov/cardbatch/internal/scorer"
	"github.com/avolkov/cardbatch/internal/sink"
	"github.com/avolkov/cardbatch/internal/source"
)

// warehouseInsertBatch bounds one streaming insert request.
const warehouseInsertBatch = 500

func main() {
	configPath := flag.String("config", "config.yaml", "path to the run configuration file")
	dateOverride := flag.String("date", "", "processing date override (YYYY-MM-DD)")
	console := flag.Bool("console", false, "human-readable console logging")
	flag.Parse()

	log := logger.New()
	if *console {
		log = logger.NewConsole()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dateOverride != "" {
		cfg.ProcessingDate = *dateOverride
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	executionID := uuid.NewString()

	var opts []option.ClientOption
	if cfg.BigQuery.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.BigQuery.CredentialsFile))
	}

	bqClient, err := bigquery.NewClient(ctx, cfg.BigQuery.ProjectID, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer bqClient.Close()

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.Queue.BufferSize, jobStore)
	defer jobQueue.Close()

	sinks := []sink.Sink{
		sink.NewWarehouse(bqClient, cfg.BigQuery.Dataset, executionID, warehouseInsertBatch),
		sink.NewFraudQueue(jobQueue, executionID, cfg.Date),
	}
	if cfg.Flags().Archiving {
		gcsClient, err := storage.NewClient(ctx, opts...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer gcsClient.Close()
		sinks = append(sinks, sink.NewArchive(gcsClient, cfg.Archive.Bucket, cfg.Archive.Prefix, cfg.Date, executionID))
	}

	var sc scorer.Scorer
	switch cfg.Scorer.Mode {
	case "gemini":
		sc, err = scorer.NewGemini(ctx, cfg.Scorer.Model)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create scorer")
		}
	default:
		sc = &scorer.Static{Default: cfg.Scorer.Fixed}
	}

	var board notify.ReviewBoard = notify.NoopBoard{}
	if cfg.Notion.Token != "" && cfg.Notion.DatabaseID != "" {
		board = notify.NewNotionBoard(cfg.Notion.Token, cfg.Notion.DatabaseID)
	}

	engine := detect.NewEngine(detect.Params{
		ProcessingDate:      cfg.Date,
		FraudScoreThreshold: cfg.FraudScoreThreshold,
		DuplicateWindow:     cfg.DuplicateWindow(),
		VelocityMinCount:    cfg.VelocityMinCount,
		GeoAnomalyWindow:    cfg.GeoAnomalyWindow(),
		OFACMatchThreshold:  cfg.OFACMatchThreshold,
		StructuringWindow:   cfg.Structuring.WindowDays,
		StructuringMinSize:  cfg.Structuring.MinCount,
		StructuringLow:      cfg.StructLow,
		StructuringHigh:     cfg.StructHi,
	}, sc, refdata.NewBigQuerySanctions(bqClient, cfg.BigQuery.Dataset))

	ctrl := controller.New(cfg, log, controller.Deps{
		ExecutionID: executionID,
		Source:      source.NewBigQueryReader(bqClient, cfg.BigQuery.Dataset),
		Categories:  refdata.NewBigQueryCategories(bqClient, cfg.BigQuery.Dataset),
		Engine:      engine,
		Fanout:      sink.NewFanout(sinks...),
		Notifier:    &notify.LogNotifier{Log: log},
		Board:       board,
	})

	result, err := ctrl.Run(ctx)
	if result != nil && result.Summary != "" {
		fmt.Print(result.Summary)
	}
	if err != nil {
		log.Error().Err(err).Msg("Batch run failed")
		os.Exit(1)
	}
	if result.Execution.Status == domain.StatusCompletedWithFailures {
		log.Warn().Msg("Batch run completed with failures; see summary")
	}
}
