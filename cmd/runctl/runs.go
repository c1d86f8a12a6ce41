package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <run-id>",
	Short: "Show a run's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		view, err := client.Status(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "status")
		}
		formatStatus(os.Stdout, args[0], view)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <quote-id>",
	Short: "List a quote's runs, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := client.History(cmd.Context(), args[0], limit)
		if err != nil {
			return eris.Wrap(err, "history")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		formatHistory(os.Stdout, runs)
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create <quote-id>",
	Short: "Create the next run version for a quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		runType, _ := cmd.Flags().GetString("type")
		noDispatch, _ := cmd.Flags().GetBool("no-dispatch")
		created, err := client.CreateRun(cmd.Context(), args[0], runType, !noDispatch)
		if err != nil {
			return eris.Wrap(err, "create")
		}
		formatCreated(os.Stdout, created)
		return nil
	},
}

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <run-id>",
	Short: "Send a run to the analysis worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.Dispatch(cmd.Context(), args[0]); err != nil {
			return eris.Wrap(err, "dispatch")
		}
		fmt.Fprintf(os.Stdout, "dispatched %s\n", args[0])
		return nil
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard <run-id>",
	Short: "Discard a run that is not active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		reason, _ := cmd.Flags().GetString("reason")
		if err := client.Discard(cmd.Context(), args[0], reason); err != nil {
			return eris.Wrap(err, "discard")
		}
		fmt.Fprintf(os.Stdout, "discarded %s\n", args[0])
		return nil
	},
}

var useCmd = &cobra.Command{
	Use:   "use <run-id>",
	Short: "Activate a completed run and apply its billing to the quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return eris.New("use replaces the quote's documents and totals; pass --yes to confirm")
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		res, err := client.Use(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "use")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "max number of runs to list")

	createCmd.Flags().String("type", "manual", "run type (auto, manual)")
	createCmd.Flags().Bool("no-dispatch", false, "create the run without sending it to the worker")

	discardCmd.Flags().String("reason", "", "reason recorded with the discard")

	useCmd.Flags().Bool("yes", false, "confirm applying the run")

	rootCmd.AddCommand(statusCmd, historyCmd, createCmd, dispatchCmd, discardCmd, useCmd)
}
