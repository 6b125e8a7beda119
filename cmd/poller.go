package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"api-poller/core/apperr"
	"api-poller/core/paging"
	"api-poller/feature/poller"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	sourceFile  string
	taskFile    string
	maxPageSize int
	yesConfirm  bool
)

// runCmd executes a whole poller run in process.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a poller batch for one data source",
	Long: `Checks the data source, plans a batch, fetches every page and hands
each record to line item processing. Progress is reported the same way the
HTTP steps report it.

Examples:
  # Run a source described in a JSON file
  run --source sources/acme.json

  # Override the configured page size
  run --source sources/acme.json --max-page-size 250`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readPrepareRequest()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.poller.Service().Run(cmd.Context(), req)
		if res != nil {
			printJSON(res)
		}
		return err
	},
}

// planCmd prints the batch a run would fetch without reporting progress.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a batch for one data source and print its tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := readPrepareRequest()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.poller.Service().Prepare(cmd.Context(), req)
		if err != nil {
			return err
		}
		printJSON(res)
		return nil
	},
}

// nextJobCmd decides the next state of a task read from a file. It needs no
// collaborator, so it only loads the logger configuration.
var nextJobCmd = &cobra.Command{
	Use:   "next-job",
	Short: "Decide the next state of a task after its page came back",
	RunE: func(cmd *cobra.Command, args []string) error {
		var task poller.Task
		if err := readJSON(taskFile, &task); err != nil {
			return err
		}

		tr, err := paging.Next(paging.PageOutcome{
			MetaAvailable:     task.Batch.MetaAvailable,
			Returned:          task.Job.RecordsSize,
			PreferredPageSize: task.PageSize(),
			StartIndex:        task.Job.StartIndex,
			NumberOfJobs:      task.Batch.NumberOfJobs,
		})
		if apperr.IsValidation(err) {
			return err
		}
		task.State = tr.State
		task.Job.StartIndex = tr.NextStartIndex
		printJSON(task)
		if errors.Is(err, apperr.ErrProtocolViolation) {
			return fmt.Errorf("task failed: %w", err)
		}
		return err
	},
}

// purgeCmd removes expired progress rows and archived pages.
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove expired batch and job progress and their archived pages",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if !confirmDestructiveAction() {
			a.logger.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}

		res, err := a.poller.Service().Purge(cmd.Context())
		if err != nil {
			return err
		}
		a.logger.Info("Purge finished",
			zap.Int64("batches", res.Batches),
			zap.Int64("jobs", res.Jobs),
			zap.Int("archived_pages", res.ArchivedPages),
		)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, planCmd} {
		c.Flags().StringVar(&sourceFile, "source", "", "Path to the data source JSON file")
		c.Flags().IntVar(&maxPageSize, "max-page-size", 0, "Override the configured page size")
		_ = c.MarkFlagRequired("source")
	}
	nextJobCmd.Flags().StringVar(&taskFile, "task", "", "Path to the task JSON file")
	_ = nextJobCmd.MarkFlagRequired("task")
	purgeCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(runCmd, planCmd, nextJobCmd, purgeCmd)
}

func readPrepareRequest() (poller.PrepareRequest, error) {
	req := poller.PrepareRequest{MaxPageSize: maxPageSize}
	if err := readJSON(sourceFile, &req.Source); err != nil {
		return req, err
	}
	return req, nil
}

func readJSON(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to confirm destructive actions: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
