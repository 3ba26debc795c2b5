package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "shelfie-cli",
		Usage: "Run grocery catalogue extractions from the command line",
		Commands: []*cli.Command{
			{
				Name:  "scrape",
				Usage: "Extract a store catalogue into an Excel file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "store",
						Usage:    "store name or id (see the stores command)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "catalogue URL; defaults to the store's default URL",
					},
					&cli.IntFlag{
						Name:  "pages",
						Usage: "maximum pages per category; 0 extracts all pages",
					},
					&cli.StringSliceFlag{
						Name:  "category",
						Usage: "category path to extract; repeat for several categories",
					},
				},
				Action: scrapeAction,
			},
			{
				Name:   "stores",
				Usage:  "List the supported stores and their categories",
				Action: storesAction,
			},
			{
				Name:  "runs",
				Usage: "Show recent extraction runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "number of runs to show",
						Value: 20,
					},
				},
				Action: runsAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
