package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	sagaconfig "github.com/kjarrow/sagaflow/pkg/config"
	"github.com/kjarrow/sagaflow/pkg/saga"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "sagactl",
		Short: "Operate sagas built on the sagaflow orchestration engine",
		Long: `sagactl drives the demo order-fulfillment saga end to end, inspects
persisted execution snapshots, and resumes paused executions against
whichever store/broker/transaction-manager backends a config file
selects.`,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the demo saga end to end against the configured backends",
		RunE:  runDemoSaga,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect <execution-id>",
		Short: "Print a persisted execution snapshot as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectExecution,
	}

	resumeCmd = &cobra.Command{
		Use:   "resume <execution-id>",
		Short: "Resume a paused execution with a synthetic success reply",
		Args:  cobra.ExactArgs(1),
		RunE:  resumeExecution,
	}

	resumePayload string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or JSON engine config file (defaults to built-in defaults)")

	resumeCmd.Flags().StringVar(&resumePayload, "payload", "resumed-by-sagactl", "reply payload to deliver to the paused step")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(resumeCmd)
}

// loadSettings reads --config if set, otherwise falls back to
// sagaconfig.DefaultEngineSettings.
func loadSettings() (sagaconfig.EngineSettings, error) {
	if configPath == "" {
		return sagaconfig.DefaultEngineSettings(), nil
	}
	c, err := sagaconfig.FromFile(configPath)
	if err != nil {
		return sagaconfig.EngineSettings{}, fmt.Errorf("sagactl: load config: %w", err)
	}
	return sagaconfig.LoadEngineSettings(c)
}

func runDemoSaga(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(settings.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	broker := autoReplyBroker()

	txManager, closeTx, err := buildTransactionManager(settings.Transaction)
	if err != nil {
		return err
	}
	defer closeTx()

	def, err := demoDefinition()
	if err != nil {
		return fmt.Errorf("sagactl: build demo saga: %w", err)
	}

	registry := demoRegistry()
	exec := saga.NewSagaExecution(def, registry, broker, txManager)

	ctx := cmd.Context()

	replies := []*saga.Response{
		nil,
		{Payload: "order-1", Status: saga.ReplySuccess},
		{Payload: "ticket-1", Status: saga.ReplySuccess},
	}

	var paused *saga.PausedExecutionStepError
	var result saga.Context
	for _, reply := range replies {
		result, err = exec.Execute(ctx, reply)
		if errors.As(err, &paused) {
			fmt.Printf("execution %s paused at step %d awaiting reply\n", exec.ID, paused.StepIndex)
			continue
		}
		if err != nil {
			return fmt.Errorf("sagactl: saga execution failed: %w", err)
		}
	}

	raw, err := exec.Raw()
	if err != nil {
		return fmt.Errorf("sagactl: snapshot execution: %w", err)
	}
	if err := store.Create(ctx, raw); err != nil {
		return fmt.Errorf("sagactl: persist snapshot: %w", err)
	}

	fmt.Printf("execution %s finished with status %s\n", exec.ID, exec.Status)
	fmt.Println("final context keys:", result.Keys())
	return nil
}

func inspectExecution(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(settings.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()

	raw, err := store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("sagactl: load snapshot: %w", err)
	}

	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("sagactl: marshal snapshot: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func resumeExecution(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(settings.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	broker, closeBroker, err := buildBroker(settings.Broker)
	if err != nil {
		return err
	}
	defer closeBroker()

	txManager, closeTx, err := buildTransactionManager(settings.Transaction)
	if err != nil {
		return err
	}
	defer closeTx()

	ctx := cmd.Context()

	raw, err := store.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("sagactl: load snapshot: %w", err)
	}

	exec, err := saga.SagaExecutionFromRaw(raw, demoRegistry(), broker, txManager)
	if err != nil {
		return fmt.Errorf("sagactl: rehydrate execution: %w", err)
	}

	response := &saga.Response{Payload: resumePayload, Status: saga.ReplySuccess, SagaID: exec.ID}

	var paused *saga.PausedExecutionStepError
	result, err := exec.Execute(ctx, response)
	if errors.As(err, &paused) {
		fmt.Printf("execution %s paused again at step %d\n", exec.ID, paused.StepIndex)
	} else if err != nil {
		return fmt.Errorf("sagactl: resume failed: %w", err)
	}

	updatedRaw, err := exec.Raw()
	if err != nil {
		return fmt.Errorf("sagactl: snapshot execution: %w", err)
	}
	if err := store.Update(ctx, updatedRaw); err != nil {
		return fmt.Errorf("sagactl: update snapshot: %w", err)
	}

	fmt.Printf("execution %s now has status %s\n", exec.ID, exec.Status)
	fmt.Println("context keys:", result.Keys())
	return nil
}
