package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"temporal-fiscal-request/config"
	"temporal-fiscal-request/display"
	"temporal-fiscal-request/logging"
	"temporal-fiscal-request/shared"
	"temporal-fiscal-request/workflows"
)

func sessionWorkflowID(sessionID string) string {
	return fmt.Sprintf("fiscal-session-%s", sessionID)
}

// dial loads the configuration and connects to Temporal. SDK logs go to zap
// so they do not interleave with the console menus at info level.
func dial() (client.Client, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create Temporal client: %w", err)
	}
	return c, logger, nil
}

func newStartCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new reimbursement session and open the wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()
			defer logger.Sync()

			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			workflowID := sessionWorkflowID(sessionID)

			// The workflow ID is the session key: starting the same session
			// twice while it runs fails instead of opening a second wizard.
			we, err := c.ExecuteWorkflow(
				cmd.Context(),
				client.StartWorkflowOptions{
					ID:        workflowID,
					TaskQueue: shared.SessionWorkflowTaskQueue,
				},
				workflows.FiscalSessionWorkflow,
				shared.SessionRequest{SessionID: sessionID},
			)
			if err != nil {
				return fmt.Errorf("unable to start session: %w", err)
			}
			logger.Info("Session started",
				zap.String("workflowId", we.GetID()),
				zap.String("runId", we.GetRunID()),
			)

			fmt.Println()
			fmt.Println("🚀 Sessão iniciada:", sessionID)
			fmt.Printf("   WorkflowID: %s\n", we.GetID())
			fmt.Printf("   RunID:      %s\n", we.GetRunID())

			return newConsole(c, workflowID, os.Stdin, os.Stdout).run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session identifier (random when empty)")
	return cmd
}

func newAttachCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attach <session-id>",
		Short: "Reopen the wizard of a running session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()
			defer logger.Sync()

			return newConsole(c, sessionWorkflowID(args[0]), os.Stdin, os.Stdout).run(cmd.Context())
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Print the steps of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, logger, err := dial()
			if err != nil {
				return err
			}
			defer c.Close()
			defer logger.Sync()

			state, err := querySession(cmd.Context(), c, sessionWorkflowID(args[0]))
			if err != nil {
				return err
			}
			fmt.Print(display.RenderStepper(state.Steps, state.CurrentStep))
			if state.RequestID != 0 {
				fmt.Printf("Solicitação: %d\n", state.RequestID)
			}
			return nil
		},
	}
}

func main() {
	root := &cobra.Command{
		Use:          "fiscal",
		Short:        "Fiscal document reimbursement wizard",
		SilenceUsage: true,
	}
	root.AddCommand(newStartCmd(), newAttachCmd(), newStatusCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
