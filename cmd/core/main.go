// Package main is the operator CLI for a device's offline queue. It opens
// the configured store, runs one command and exits.
//
//	fieldsync [-env FILE] [-json] <command> [args]
//
// Commands: stats, list, enqueue, drain, retry, retry-all, remove,
// clear-old, conflicts, version.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/farhanfatur/Attendance-App/internal/app"
	"github.com/farhanfatur/Attendance-App/internal/config"
	fieldsync "github.com/farhanfatur/Attendance-App/internal/sync"
	"github.com/farhanfatur/Attendance-App/internal/sync/queue"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cli carries the global flags and output streams for one invocation.
type cli struct {
	out     io.Writer
	errOut  io.Writer
	asJSON  bool
	appOpts []app.Option
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, appOpts ...app.Option) int {
	fs := flag.NewFlagSet("fieldsync", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", "", "Load settings from this env file instead of ./.env")
	asJSON := fs.Bool("json", false, "Print machine-readable JSON")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: fieldsync [-env FILE] [-json] <command> [args]")
		fmt.Fprintln(stderr, "commands: stats, list, enqueue, drain, retry, retry-all, remove, clear-old, conflicts, version")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	c := &cli{out: stdout, errOut: stderr, asJSON: *asJSON, appOpts: appOpts}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "version" {
		fmt.Fprintf(stdout, "fieldsync v%s\n", Version)
		return 0
	}

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}

	a, err := app.New(ctx, cfg, c.appOpts...)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			fmt.Fprintln(stderr, "Error:", err)
		}
	}()

	if err := c.dispatch(ctx, a, cmd, rest); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func (c *cli) dispatch(ctx context.Context, a *app.App, cmd string, args []string) error {
	e := a.Engine
	switch cmd {
	case "stats":
		return c.stats(e)
	case "list":
		return c.list(e)
	case "enqueue":
		return c.enqueue(ctx, e, args)
	case "drain":
		return c.drain(ctx, e)
	case "retry":
		if len(args) != 1 {
			return fmt.Errorf("retry requires an item id")
		}
		if err := e.RetryItem(ctx, args[0]); err != nil {
			return err
		}
		return c.print(map[string]string{"retried": args[0]}, "Retrying %s\n", args[0])
	case "retry-all":
		n := e.RetryAllFailed(ctx)
		return c.print(map[string]int{"retried": n}, "Retrying %d failed items\n", n)
	case "remove":
		if len(args) != 1 {
			return fmt.Errorf("remove requires an item id")
		}
		if err := e.RemoveItem(ctx, args[0]); err != nil {
			return err
		}
		return c.print(map[string]string{"removed": args[0]}, "Removed %s\n", args[0])
	case "clear-old":
		return c.clearOld(ctx, e, args)
	case "conflicts":
		return c.conflicts(ctx, a, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (c *cli) stats(e *fieldsync.Engine) error {
	s := e.Status()
	if c.asJSON {
		return c.writeJSON(s)
	}
	fmt.Fprintf(c.out, "total=%d pending=%d syncing=%d failed=%d\n",
		s.Stats.Total, s.Stats.Pending, s.Stats.Syncing, s.Stats.Failed)
	if s.Degraded {
		fmt.Fprintf(c.out, "persistence degraded: %s\n", s.LastError)
	}
	return nil
}

func (c *cli) list(e *fieldsync.Engine) error {
	items := e.GetQueue()
	if c.asJSON {
		return c.writeJSON(items)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tPRIORITY\tSTATUS\tRETRIES\tCREATED\tERROR")
	for _, it := range items {
		status := string(it.Status)
		if it.AwaitingManual {
			status += " (manual)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d/%d\t%s\t%s\n",
			it.ID, it.ActionType, it.Priority, status, it.RetryCount, it.MaxRetries,
			it.CreatedAt.Format(time.RFC3339), it.ErrorMessage)
	}
	return tw.Flush()
}

func (c *cli) enqueue(ctx context.Context, e *fieldsync.Engine, args []string) error {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	priority := fs.Int("priority", -1, "Override the action's default priority")
	strategy := fs.String("strategy", "", "Conflict resolution: client-wins|server-wins|merge|manual")
	maxRetries := fs.Int("max-retries", 0, "Override the default retry budget")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("enqueue requires an action type (%s)", joinActions())
	}

	action, err := queue.ParseActionType(fs.Arg(0))
	if err != nil {
		return err
	}

	payload := map[string]interface{}{}
	if fs.NArg() > 1 {
		if err := queue.DecodeJSON([]byte(fs.Arg(1)), &payload); err != nil {
			return fmt.Errorf("payload must be a JSON object: %w", err)
		}
	}

	opts := fieldsync.EnqueueOptions{
		ConflictResolution: queue.ConflictResolution(*strategy),
		MaxRetries:         *maxRetries,
	}
	if *priority >= 0 {
		opts.Priority = priority
	}

	id, err := e.Enqueue(ctx, action, payload, opts)
	if err != nil {
		return err
	}
	return c.print(map[string]string{"id": id}, "%s\n", id)
}

func (c *cli) drain(ctx context.Context, e *fieldsync.Engine) error {
	res := e.ProcessQueue(ctx)
	if c.asJSON {
		return c.writeJSON(res)
	}
	if res.Skipped != "" {
		fmt.Fprintf(c.out, "drain skipped: %s\n", res.Skipped)
		return nil
	}
	fmt.Fprintf(c.out, "attempted=%d succeeded=%d conflicts=%d retried=%d failed=%d\n",
		res.Attempted, res.Succeeded, res.Conflicts, res.Retried, res.Failed)
	return nil
}

func (c *cli) clearOld(ctx context.Context, e *fieldsync.Engine, args []string) error {
	fs := flag.NewFlagSet("clear-old", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	maxAge := fs.Duration("max-age", 7*24*time.Hour, "Remove failed items older than this")
	if err := fs.Parse(args); err != nil {
		return err
	}
	n := e.ClearOldItems(ctx, *maxAge)
	return c.print(map[string]int{"removed": n}, "Removed %d items\n", n)
}

func (c *cli) conflicts(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("conflicts", flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	limit := fs.Int("limit", 50, "Maximum entries to show")
	if err := fs.Parse(args); err != nil {
		return err
	}
	logs, err := a.ConflictLogs(ctx, *limit)
	if err != nil {
		return err
	}
	if c.asJSON {
		return c.writeJSON(logs)
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tACTION\tRESOLUTION\tLOCAL\tSERVER\tDETECTED")
	for _, l := range logs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", l.ItemID, l.ActionType, l.Resolution,
			l.LocalVersion, l.ServerVersion, l.DetectedAtTime().UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func (c *cli) print(v interface{}, format string, args ...interface{}) error {
	if c.asJSON {
		return c.writeJSON(v)
	}
	_, err := fmt.Fprintf(c.out, format, args...)
	return err
}

func (c *cli) writeJSON(v interface{}) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinActions() string {
	names := make([]string, 0, len(queue.ActionTypes()))
	for _, a := range queue.ActionTypes() {
		names = append(names, string(a))
	}
	return strings.Join(names, ", ")
}
