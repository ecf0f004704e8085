package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/relayhq/chatflow/pkg/actions"
	"github.com/relayhq/chatflow/pkg/cmd"
	"github.com/relayhq/chatflow/pkg/flow"
	"github.com/relayhq/chatflow/pkg/log"
	"github.com/relayhq/chatflow/pkg/nodes"
	"github.com/relayhq/chatflow/pkg/services"
)

const defaultSessionIdleTTL = 24 * time.Hour

func main() {
	command := &cli.Command{
		Name:                  "chatflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to process inbound contact messages",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker list (kafka provider only)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.DurationFlag{
				Name:    "session-idle-ttl",
				Usage:   "Idle time after which active sessions are expired",
				Value:   defaultSessionIdleTTL,
				Sources: cli.EnvVars("SESSION_IDLE_TTL"),
			},
			&cli.StringFlag{
				Name:    "sweep-schedule",
				Usage:   "Cron schedule for the session sweeper",
				Value:   "@every 5m",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("chatflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Chatflow Worker")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), "chatflow-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			messageBus := cmd.NewMessageBus(command.String("event-bus"), command.String("kafka-brokers"), "chatflow-worker-messages", logger)
			defer func() {
				if err := messageBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close message bus", "error", err)
				}
			}()

			dispatcher := actions.NewDispatcher(logger, eventBus)
			registry := nodes.NewRegistry(logger, dispatcher)
			engine := flow.NewEngine(logger, persistence, registry, eventBus)
			sweeper := services.NewSessionSweeper(
				logger,
				persistence.SessionRepository(),
				command.Duration("session-idle-ttl"),
				command.String("sweep-schedule"),
			)

			manager := NewWorkerManager(workerID, persistence, engine, messageBus, sweeper, logger)

			return manager.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
