package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akshaymalik1995/llm-agent/config"
	"github.com/akshaymalik1995/llm-agent/internal/server"
	"github.com/akshaymalik1995/llm-agent/models"
)

// Exit codes for the run command, keyed by how the execution ended.
const (
	exitCompleted = 0
	exitFailed    = 1
	exitStopped   = 2
)

func runCMD() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Plan and execute a single query, printing events to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			srv, err := server.New(cfg)
			if err != nil {
				return err
			}

			query := strings.Join(args, " ")
			res, err := srv.Submit(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}

			id, verrs := srv.Start(res.Plan, query)
			if len(verrs) > 0 {
				return fmt.Errorf("plan failed validation: %v", verrs)
			}

			replay, sub, ok := srv.Registry().Subscribe(id)
			if !ok {
				return fmt.Errorf("execution %s disappeared", id)
			}

			for _, event := range replay {
				printEvent(event)
				if event.Terminal() {
					os.Exit(exitCodeFor(event))
				}
			}
			for event := range sub.C {
				printEvent(event)
				if event.Terminal() {
					os.Exit(exitCodeFor(event))
				}
			}
			return fmt.Errorf("event stream ended without a terminal event")
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional config file path")
	return cmd
}

func printEvent(event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode event: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func exitCodeFor(event models.Event) int {
	switch event.Type {
	case models.EventExecutionCompleted:
		return exitCompleted
	case models.EventExecutionStopped:
		return exitStopped
	default:
		return exitFailed
	}
}
