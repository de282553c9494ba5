package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/banshee-data/topomap/internal/config"
	"github.com/banshee-data/topomap/internal/db"
	"github.com/banshee-data/topomap/internal/fsutil"
	"github.com/banshee-data/topomap/internal/monitoring"
	"github.com/banshee-data/topomap/internal/observability"
	"github.com/banshee-data/topomap/internal/render"
	"github.com/banshee-data/topomap/internal/terrain"
	"github.com/banshee-data/topomap/internal/timeutil"
	"github.com/banshee-data/topomap/internal/version"
)

// Stage names, used for spans, metrics and log fields.
const (
	StageLoad    = "load"
	StageSurface = "surface"
	StageScene   = "scene"
	StageHeatmap = "heatmap"
	StageHTML    = "html"
	StageCatalog = "catalog"
	StageMetrics = "metrics"
)

// Options describes one run. Only InputPath is required.
type Options struct {
	InputPath string
	// OutputDir receives the scene PNG under the name derived from the
	// sea level, unless OutputPath names the file explicitly.
	OutputDir  string
	OutputPath string
	// SkipRender stops after classification.
	SkipRender bool

	HeatmapPath string
	HTMLPath    string

	// DBPath enables the run catalog.
	DBPath string
	// MetricsTextfile enables the Prometheus textfile dump.
	MetricsTextfile string

	Config *config.RenderConfig
	// FS serves the input and output files; DBPath and MetricsTextfile
	// always use the OS filesystem.
	FS fsutil.FileSystem
	// Registerer receives pipeline metrics; nil uses a private registry.
	Registerer prometheus.Registerer
	// Clock times stages and stamps catalog rows; nil uses the wall clock.
	Clock timeutil.Clock
}

// Result is what a run produced.
type Result struct {
	RunID   string
	Grid    *terrain.ElevationGrid
	Surface *terrain.Surface
	Water   terrain.WaterResult
	Camera  terrain.Camera
	Scene   render.SceneStats

	OutputPath  string
	HeatmapPath string
	HTMLPath    string
	HTMLPoints  int

	Duration time.Duration
}

type runner struct {
	opts    Options
	cfg     *config.RenderConfig
	metrics *observability.PipelineCollector
	log     *zap.Logger
	clock   timeutil.Clock
	started time.Time
}

// Run executes the pipeline. The context is checked between stages.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	start := opts.Clock.Now()
	if opts.InputPath == "" {
		return nil, errors.New("input path is required")
	}
	if opts.FS == nil {
		opts.FS = fsutil.OSFileSystem{}
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.EmptyRenderConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := observability.NewPipelineCollector(reg)
	if err != nil {
		return nil, err
	}

	r := &runner{
		opts:    opts,
		cfg:     cfg,
		metrics: metrics,
		log:     monitoring.L().With(zap.String("input", opts.InputPath)),
		clock:   opts.Clock,
		started: start,
	}

	ctx, span := observability.Tracer().Start(ctx, "topomap.run")
	defer span.End()

	res := &Result{}
	if err := r.run(ctx, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	res.Duration = opts.Clock.Since(start)

	if opts.DBPath != "" {
		if err := r.stage(ctx, StageCatalog, func(ctx context.Context) error {
			return r.record(ctx, res)
		}); err != nil {
			return nil, err
		}
	}
	if opts.MetricsTextfile != "" {
		if err := r.stage(ctx, StageMetrics, func(context.Context) error {
			return metrics.WriteTextfile(opts.MetricsTextfile)
		}); err != nil {
			return nil, err
		}
	}

	r.log.Info("run complete",
		zap.String("run_id", res.RunID),
		zap.Int("lakes", len(res.Water.Lakes)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (r *runner) run(ctx context.Context, res *Result) error {
	err := r.stage(ctx, StageLoad, func(context.Context) error {
		g, err := terrain.LoadGridFile(r.opts.FS, r.opts.InputPath)
		if err != nil {
			return err
		}
		res.Grid = g
		return nil
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageSurface, func(ctx context.Context) error {
		s, water, err := terrain.BuildSurface(
			r.cfg.GetEarthRadius(),
			r.cfg.Bounds(),
			res.Grid,
			r.cfg.GetLatitudeConvention(),
			r.cfg.WaterOptions(),
		)
		if err != nil {
			return err
		}
		res.Surface, res.Water = s, water
		r.metrics.SetWater(res.Grid.Len(), water.Regions, len(water.Lakes), water.LakeCells())
		annotate(ctx,
			attribute.Int("grid.rows", res.Grid.Rows),
			attribute.Int("grid.cols", res.Grid.Cols),
			attribute.Int("water.lakes", len(water.Lakes)),
		)
		return nil
	})
	if err != nil {
		return err
	}
	res.Camera = terrain.CameraFor(r.cfg.GetEarthRadius(), r.cfg.GetCameraDistance(), r.cfg.Bounds(), r.cfg.GetLatitudeConvention())

	if r.opts.SkipRender {
		return nil
	}

	ctf, err := render.ColorTransferFunctionFromConfig(r.cfg.GetColorStops())
	if err != nil {
		return fmt.Errorf("color stops: %w", err)
	}

	res.OutputPath = r.opts.OutputPath
	if res.OutputPath == "" {
		res.OutputPath = filepath.Join(r.outputDir(), r.cfg.ScreenshotName())
	}
	err = r.stage(ctx, StageScene, func(ctx context.Context) error {
		sceneOpts := render.DefaultSceneOptions()
		sceneOpts.Width = r.cfg.GetImageWidth()
		sceneOpts.Height = r.cfg.GetImageHeight()
		sceneOpts.MaxCellsPerAxis = r.cfg.GetRenderMaxCellsPerAxis()
		return r.writeFile(res.OutputPath, func(w io.Writer) error {
			stats, err := render.RenderScene(w, res.Surface, res.Camera, ctf, sceneOpts)
			res.Scene = stats
			r.metrics.SetRenderedQuads(stats.Quads)
			annotate(ctx, attribute.Int("scene.quads", stats.Quads), attribute.Int("scene.stride", stats.Stride))
			return err
		})
	})
	if err != nil {
		return err
	}

	if p := r.opts.HeatmapPath; p != "" {
		err = r.stage(ctx, StageHeatmap, func(context.Context) error {
			return r.writeFile(p, func(w io.Writer) error {
				return render.WriteHeatmap(w, res.Surface, r.cfg.Bounds(), ctf, render.HeatmapOptions{
					Title: fmt.Sprintf("Elevation (sea level %d m)", r.cfg.GetSeaLevel()),
				})
			})
		})
		if err != nil {
			return err
		}
		res.HeatmapPath = p
	}

	if p := r.opts.HTMLPath; p != "" {
		err = r.stage(ctx, StageHTML, func(context.Context) error {
			return r.writeFile(p, func(w io.Writer) error {
				n, err := render.WriteHTML(w, res.Grid, res.Surface, r.cfg.Bounds(), ctf, render.HTMLOptions{
					Title:     filepath.Base(r.opts.InputPath),
					MaxPoints: r.cfg.GetHTMLMaxPoints(),
				})
				res.HTMLPoints = n
				return err
			})
		})
		if err != nil {
			return err
		}
		res.HTMLPath = p
	}
	return nil
}

// stage runs fn inside a span, timing it and logging the outcome.
func (r *runner) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	ctx, span := observability.Tracer().Start(ctx, "topomap."+name)
	defer span.End()

	start := r.clock.Now()
	err := fn(ctx)
	elapsed := r.clock.Since(start)
	r.metrics.ObserveStage(name, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Error("stage failed", zap.String("stage", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	r.log.Debug("stage done", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	return nil
}

func (r *runner) outputDir() string {
	if r.opts.OutputDir == "" {
		return "."
	}
	return r.opts.OutputDir
}

// writeFile creates p (and its directory) on the run filesystem and hands
// the writer to fn. The close error is reported when fn succeeds.
func (r *runner) writeFile(p string, fn func(io.Writer) error) (err error) {
	if dir := filepath.Dir(p); dir != "." && dir != string(filepath.Separator) {
		if err := r.opts.FS.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}
	f, err := r.opts.FS.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", p, cerr)
		}
	}()
	if err := fn(f); err != nil {
		return err
	}
	monitoring.Logf("wrote %s", p)
	return nil
}

func (r *runner) record(ctx context.Context, res *Result) error {
	catalog, err := db.NewDB(r.opts.DBPath)
	if err != nil {
		return err
	}
	defer catalog.Close()

	lo, hi := res.Grid.MinMax()
	b := r.cfg.Bounds()
	run := db.Run{
		CreatedAt:          r.started,
		InputPath:          r.opts.InputPath,
		OutputPath:         res.OutputPath,
		Rows:               res.Grid.Rows,
		Cols:               res.Grid.Cols,
		Bounds:             b,
		EarthRadius:        r.cfg.GetEarthRadius(),
		SeaLevel:           r.cfg.GetSeaLevel(),
		SeaLevelOrder:      string(r.cfg.GetSeaLevelOrder()),
		MinLakeCells:       r.cfg.GetMinLakeCells(),
		LatitudeConvention: string(r.cfg.GetLatitudeConvention()),
		ElevationMin:       lo,
		ElevationMax:       hi,
		Regions:            res.Water.Regions,
		LakeCount:          len(res.Water.Lakes),
		LakeCells:          res.Water.LakeCells(),
		Duration:           res.Duration,
		Version:            version.Version,
		GitSHA:             version.GitSHA,
	}
	id, err := catalog.RecordRun(ctx, run, db.NewLakeRecords(res.Water.Lakes, b, res.Grid.Rows, res.Grid.Cols))
	if err != nil {
		return err
	}
	res.RunID = id
	annotate(ctx, attribute.String("run.id", id))
	return nil
}

func annotate(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
