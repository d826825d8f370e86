package main

import (
	"log"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"temporal-fiscal-request/config"
	"temporal-fiscal-request/logging"
	"temporal-fiscal-request/shared"
	"temporal-fiscal-request/workflows"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Unable to create logger: %v", err)
	}
	defer logger.Sync()

	// Workflow and SDK logs go through zap; the replay-aware wrapper drops
	// duplicates while a session history is replayed.
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatal("Unable to create Temporal client", zap.Error(err))
	}
	defer c.Close()

	// Sessions are long-lived and mostly idle. StickyScheduleToStartTimeout
	// (default 5s) decides how long a session task waits for the worker that
	// has its state cached before another worker replays it from history.
	w := worker.New(c, shared.SessionWorkflowTaskQueue, worker.Options{})

	w.RegisterWorkflow(workflows.FiscalSessionWorkflow)
	w.RegisterWorkflow(workflows.FiscalProcessWorkflow)

	logger.Info("Starting fiscal session worker", zap.String("taskQueue", shared.SessionWorkflowTaskQueue))
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatal("Unable to start worker", zap.Error(err))
	}
}
