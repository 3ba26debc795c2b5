package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
	"github.com/vrsandeep/shelfie-go/internal/core"
	"github.com/vrsandeep/shelfie-go/internal/jobs"
	"github.com/vrsandeep/shelfie-go/internal/models"
	"github.com/vrsandeep/shelfie-go/internal/scraper"
)

const closeTimeout = 30 * time.Second

// scrapeAction runs one extraction in-process and prints every log line.
func scrapeAction(ctx context.Context, cmd *cli.Command) error {
	printer := jobs.ListenerFunc(func(ev jobs.Event) {
		if ev.Type == jobs.EventLog {
			fmt.Println(ev.Message)
		}
	})
	app, err := core.New(core.WithRunnerOptions(jobs.WithListener(printer)))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		app.Close(closeCtx)
	}()

	runner := app.Runner()
	err = runner.Start(jobs.Request{
		StoreType:  cmd.String("store"),
		URL:        cmd.String("url"),
		MaxPages:   int(cmd.Int("pages")),
		Categories: cmd.StringSlice("category"),
		Source:     jobs.SourceCLI,
	})
	if err != nil {
		return err
	}

	if err := runner.Wait(ctx); err != nil {
		// Interrupted: stop at the next page boundary and wait for the run to end.
		runner.Cancel()
		waitCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		runner.Wait(waitCtx)
	}

	status := runner.Peek()
	// The terminal line is written with the finished event, not as a log event.
	if n := len(status.Logs); n > 0 {
		fmt.Println(status.Logs[n-1])
	}
	if status.State != models.RunCompleted || status.OutputFile == nil {
		if status.Error == "" {
			return errors.New("extraction did not complete")
		}
		return errors.New(status.Error)
	}
	fmt.Println(filepath.Join(app.Config().Output.Path, *status.OutputFile))
	return nil
}

func storesAction(ctx context.Context, cmd *cli.Command) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Name", "Website", "Default URL", "Categories")
	for _, p := range scraper.DefaultRegistry().All() {
		values := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			values = append(values, c.Value)
		}
		table.Append(p.ID, p.Name, p.Website, p.DefaultURL, strings.Join(values, "\n"))
	}
	return table.Render()
}

func runsAction(ctx context.Context, cmd *cli.Command) error {
	app, err := core.New()
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	runs, err := app.Store().ListRuns(int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Started", "Store", "Source", "State", "Products", "File")
	for _, r := range runs {
		file := ""
		if r.OutputFile != nil {
			file = *r.OutputFile
		}
		table.Append(
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.StoreType,
			r.Source,
			r.State,
			fmt.Sprintf("%d", r.ProductCount),
			file,
		)
	}
	return table.Render()
}
