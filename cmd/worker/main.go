package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avolkov/cardbatch/internal/jobs"
	"github.com/avolkov/cardbatch/internal/jobs/inmemory"
	"github.com/avolkov/cardbatch/internal/logger"
)

func main() {
	metricsAddr := flag.String("metrics-addr", ":9102", "listen address for the Prometheus metrics endpoint")
	flag.Parse()

	log := logger.New()

	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().Msg("Starting fraud review worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics endpoint failed")
		}
	}()

	handler := func(ctx context.Context, job jobs.Job) error {
		reviewJob, ok := job.(*jobs.FraudReviewJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", reviewJob.JobID).
			Str("execution_id", reviewJob.ExecutionID).
			Str("processing_date", reviewJob.ProcessingDate).
			Int("transactions", len(reviewJob.TransactionIDs)).
			Int("high_value", reviewJob.HighValueCount).
			Int("international", reviewJob.InternationalCount).
			Msg("Processing fraud review job")

		// The review service reads the slice from the warehouse by execution
		// id; the worker only acknowledges and tracks the job here.
		log.Info().
			Str("job_id", reviewJob.JobID).
			Msg("Fraud review job completed")
		return nil
	}

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker exited")
}
