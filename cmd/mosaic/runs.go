package main

import (
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/mosaic.offsets/internal/config"
	"github.com/banshee-data/mosaic.offsets/internal/db"
)

func runRuns(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", config.EmptyOffsetConfig().GetDBPath(), "Run database path")
	limit := fs.Int("limit", db.DefaultListLimit, "Maximum number of runs to list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	if fs.NArg() > 0 {
		run, err := store.GetRun(fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "# run %s %s format=%s mode=%s scale=%.4f pa=%.5f\n",
			run.RunID, run.CreatedAt.Format(time.RFC3339), run.Format, run.Mode, run.Scale, run.PositionAngle)
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "INDEX\tNAME\tX_OFF\tY_OFF")
		for _, e := range run.Exposures {
			fmt.Fprintf(tw, "%d\t%s\t%.3f\t%.3f\n", e.Index, e.Name, e.XOff, e.YOff)
		}
		return tw.Flush()
	}

	runs, err := store.ListRuns(*limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tFORMAT\tMODE\tEXPOSURES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.RunID, r.CreatedAt.Format(time.RFC3339), r.Format, r.Mode, r.ExposureCount)
	}
	return tw.Flush()
}
