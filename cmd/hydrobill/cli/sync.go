// Package cli holds the operational subcommands of the hydrobill binary.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/hydrobill/hydrobill/jobs"
)

// SyncCommandName is the subcommand that runs the bulk billing cycle sync.
const SyncCommandName = "sync-billing-cycles"

// SyncEnqueuer queues the bulk synchronisation on the worker.
type SyncEnqueuer interface {
	EnqueueBillingSyncContext(ctx context.Context, payload jobs.BillingSyncPayload) (string, error)
}

// SyncCLI runs or enqueues CreateForAllCustomers from the command line.
type SyncCLI struct {
	Sync     jobs.BulkSyncer
	Enqueuer SyncEnqueuer
	Logger   *slog.Logger
	Out      io.Writer
}

// Run parses args and returns the process exit code.
func (c *SyncCLI) Run(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet(SyncCommandName, flag.ContinueOnError)
	fs.SetOutput(c.Out)
	enqueue := fs.Bool("enqueue", false, "queue the run on the worker instead of running it here")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *enqueue {
		if c.Enqueuer == nil {
			c.Logger.Error("billing sync enqueue", slog.String("error", "queue client not configured"))
			return 1
		}
		id, err := c.Enqueuer.EnqueueBillingSyncContext(ctx, jobs.BillingSyncPayload{Source: "cli"})
		if err != nil {
			c.Logger.Error("billing sync enqueue", slog.Any("error", err))
			return 1
		}
		fmt.Fprintf(c.Out, "enqueued %s task %s\n", jobs.TaskBillingSyncAll, id)
		return 0
	}

	if c.Sync == nil {
		c.Logger.Error("billing sync", slog.String("error", "synchronizer not configured"))
		return 1
	}
	summary := c.Sync.CreateForAllCustomers(ctx)
	fmt.Fprintf(c.Out, "customers: %d\ncreated: %d\nupdated: %d\nerrors: %d\n",
		summary.Total, summary.Created, summary.Updated, summary.Errors)
	for _, f := range summary.Failures {
		fmt.Fprintf(c.Out, "  customer %d: %s\n", f.CustomerID, f.Message)
	}
	if summary.Errors > 0 {
		c.Logger.Error("billing sync finished with errors", slog.Int("errors", summary.Errors))
		return 1
	}
	c.Logger.Info("billing sync finished", slog.Int("created", summary.Created), slog.Int("updated", summary.Updated))
	return 0
}
