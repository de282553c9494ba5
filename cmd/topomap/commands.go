package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/topomap/internal/db"
	"github.com/banshee-data/topomap/internal/monitoring"
	"github.com/banshee-data/topomap/internal/observability"
	"github.com/banshee-data/topomap/internal/pipeline"
	"github.com/banshee-data/topomap/internal/units"
	"github.com/banshee-data/topomap/internal/version"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:           "topomap",
		Short:         "Render elevation grids as projected terrain with lakes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			monitoring.Init(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newRenderCmd(), newLakesCmd(), newRunsCmd(), newVersionCmd())
	return root
}

func newRenderCmd() *cobra.Command {
	f := &renderFlags{}
	cmd := &cobra.Command{
		Use:   "render [flags] <input>",
		Short: "Project, classify and render a grid to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(cmd.Flags())
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				InputPath:       args[0],
				OutputDir:       f.outputDir,
				OutputPath:      f.output,
				HeatmapPath:     f.heatmap,
				HTMLPath:        f.html,
				DBPath:          f.dbPath,
				MetricsTextfile: f.metricsTextfile,
				Config:          cfg,
			}
			return withTracing(cmd.Context(), f.traceFile, func(ctx context.Context) error {
				res, err := pipeline.Run(ctx, opts)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "wrote %s (%d lakes, %d quads, %s)\n",
					res.OutputPath, len(res.Water.Lakes), res.Scene.Quads, res.Duration.Round(time.Millisecond))
				for _, p := range []string{res.HeatmapPath, res.HTMLPath} {
					if p != "" {
						fmt.Fprintf(out, "wrote %s\n", p)
					}
				}
				if res.RunID != "" {
					fmt.Fprintf(out, "run %s recorded in %s\n", res.RunID, f.dbPath)
				}
				return nil
			})
		},
	}
	f.register(cmd.Flags(), true)
	return cmd
}

func newLakesCmd() *cobra.Command {
	f := &renderFlags{}
	var unit string
	cmd := &cobra.Command{
		Use:   "lakes [flags] <input>",
		Short: "List the lakes detected in a grid without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !units.IsValid(unit) {
				return fmt.Errorf("invalid --units %q, want one of %s", unit, units.GetValidUnitsString())
			}
			cfg, err := f.config(cmd.Flags())
			if err != nil {
				return err
			}
			return withTracing(cmd.Context(), f.traceFile, func(ctx context.Context) error {
				res, err := pipeline.Run(ctx, pipeline.Options{
					InputPath:       args[0],
					SkipRender:      true,
					DBPath:          f.dbPath,
					MetricsTextfile: f.metricsTextfile,
					Config:          cfg,
				})
				if err != nil {
					return err
				}
				b := cfg.Bounds()
				return printLakes(cmd.OutOrStdout(), db.NewLakeRecords(res.Water.Lakes, b, res.Grid.Rows, res.Grid.Cols), unit)
			})
		},
	}
	f.register(cmd.Flags(), false)
	cmd.Flags().StringVarP(&unit, "units", "u", units.Meters, "elevation units: "+units.GetValidUnitsString())
	return cmd
}

func newRunsCmd() *cobra.Command {
	var dbPath string
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List catalogued render runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				return fmt.Errorf("--db is required")
			}
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("catalog %s: %w", dbPath, err)
			}
			catalog, err := db.NewDB(dbPath)
			if err != nil {
				return err
			}
			defer catalog.Close()

			runs, err := catalog.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "catalog database path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "most recent runs to show (0 for all)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// withTracing runs fn with spans exported to path, or untraced when path
// is empty.
func withTracing(ctx context.Context, path string, fn func(context.Context) error) error {
	cfg := observability.TracingConfig{}
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer f.Close()
		cfg.Writer = f
	}
	shutdown, err := observability.InitTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.WithoutCancel(ctx), shutdown)
	return fn(ctx)
}

func printLakes(w io.Writer, lakes []db.LakeRecord, unit string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "LABEL\tELEVATION (%s)\tCELLS\tROWS\tCOLS\tCENTROID\n", unit)
	for _, l := range lakes {
		fmt.Fprintf(tw, "%d\t%.1f\t%d\t%d-%d\t%d-%d\t%.4f,%.4f\n",
			l.Label, units.ConvertLength(float64(l.Elevation), unit), l.Cells, l.RowMin, l.RowMax, l.ColMin, l.ColMax, l.CentroidLat, l.CentroidLon)
	}
	fmt.Fprintf(tw, "%d lakes\n", len(lakes))
	return tw.Flush()
}

func printRuns(w io.Writer, runs []db.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tINPUT\tGRID\tSEA LEVEL\tLAKES\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.InputPath, r.Rows, r.Cols, r.SeaLevel, r.LakeCount, r.Duration)
	}
	return tw.Flush()
}
