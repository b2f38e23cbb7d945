package main

import (
	"io"

	"github.com/spf13/cobra"

	"lensblur"
	"lensblur/ba/debug"
	"lensblur/export"
	"lensblur/metrics"
	"lensblur/track"
)

// NewSolveCommand solve 子命令: 读取跟踪记录并求解
func NewSolveCommand(root *RootOptions) *cobra.Command {
	var (
		seed        int64
		steps       int
		scale       float64
		mode        string
		policy      string
		points      string
		cameras     string
		report      string
		charts      string
		plot        string
		record      string
		metricsPath string
	)
	cmd := &cobra.Command{
		Use:   "solve <tracks-file>",
		Short: "Run bundle adjustment on recorded feature tracks",
		Long: `Load per-frame feature tracks (YAML or JSON), keep the points tracked
in every frame and refine camera poses and inverse depths.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := root.Config
			flags := cmd.Flags()
			if flags.Changed("seed") {
				c.Solver.Seed = seed
			}
			if flags.Changed("steps") {
				c.Stop.MaxSteps = steps
			}
			if flags.Changed("scale") {
				c.Output.Scale = scale
			}
			if flags.Changed("damping-mode") {
				c.Solver.DampingMode = mode
			}
			if flags.Changed("policy") {
				c.Solver.Policy = policy
			}
			for name, dst := range map[string]*string{
				"points":  &c.Output.Points,
				"cameras": &c.Output.Cameras,
				"report":  &c.Output.Report,
				"charts":  &c.Debug.Charts,
				"plot":    &c.Debug.Plot,
				"record":  &c.Debug.Record,
				"metrics": &c.Debug.Metrics,
			} {
				if v, _ := flags.GetString(name); flags.Changed(name) {
					*dst = v
				}
			}
			if err := c.Validate(); err != nil {
				return err
			}
			return runSolve(root, args[0], cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.Int64Var(&seed, "seed", 0, "random seed for initialization")
	f.IntVar(&steps, "steps", 0, "maximum solver steps")
	f.Float64Var(&scale, "scale", 1, "scale applied to written coordinates")
	f.StringVar(&mode, "damping-mode", "", "diagonal damping (multiplicative|marquardt)")
	f.StringVar(&policy, "policy", "", "action on a worse step (keep|revert)")
	f.StringVar(&points, "points", "", "point cloud CSV output (- for stdout)")
	f.StringVar(&cameras, "cameras", "", "camera CSV output")
	f.StringVar(&report, "report", "", "JSON report output")
	f.StringVar(&charts, "charts", "", "HTML convergence charts output")
	f.StringVar(&plot, "plot", "", "convergence plot image output (png|svg|pdf)")
	f.StringVar(&record, "record", "", "iteration record JSON output")
	f.StringVar(&metricsPath, "metrics", "", "Prometheus textfile output")
	return cmd
}

func runSolve(root *RootOptions, path string, stdout io.Writer) error {
	c, logger := root.Config, root.Logger
	tracks, err := track.Load(path)
	if err != nil {
		return err
	}
	solverOpts, err := c.Solver.Options(logger)
	if err != nil {
		return err
	}

	rec := &debug.Record{}
	m := metrics.New()
	rec.Begin(c.Solver.DampingMode, c.Solver.Policy, c.Solver.Damping)
	est := lensblur.New(
		lensblur.WithLogger(logger),
		lensblur.WithTracker(track.Recorded{Tracks: tracks}),
		lensblur.WithNormalization(c.Normalization),
		lensblur.WithStop(c.Stop),
		lensblur.WithSolverOptions(solverOpts...),
		lensblur.WithObserver(rec.Observe),
		lensblur.WithObserver(m.Observe),
	)
	res, err := est.Estimate(nil)
	if err != nil {
		return err
	}
	rec.Cameras, rec.Points = len(res.Cameras), len(res.Points)
	m.SetProblem(len(res.Cameras), len(res.Points), res.Survival)
	m.ObserveRun(res.Report, res.Duration)

	scale := c.Output.Scale
	if err := writeFile(c.Output.Points, stdout, func(w io.Writer) error {
		return export.WritePoints(w, res.Points, scale)
	}); err != nil {
		return err
	}
	if err := writeFile(c.Output.Cameras, stdout, func(w io.Writer) error {
		return export.WriteCameras(w, res.Cameras, scale)
	}); err != nil {
		return err
	}
	if err := writeFile(c.Output.Report, stdout, func(w io.Writer) error {
		r, err := res.Export(scale)
		if err != nil {
			return err
		}
		return export.WriteReport(w, r)
	}); err != nil {
		return err
	}
	if err := writeFile(c.Debug.Record, stdout, rec.Render); err != nil {
		return err
	}
	if err := writeFile(c.Debug.Charts, stdout, (&debug.Charts{Record: *rec}).Render); err != nil {
		return err
	}
	if c.Debug.Plot != "" && rec.Len() > 0 {
		if err := (&debug.Plot{Record: *rec}).Save(c.Debug.Plot); err != nil {
			return err
		}
	}
	if c.Debug.Metrics != "" {
		if err := m.WriteTextfile(c.Debug.Metrics); err != nil {
			return err
		}
	}
	logger.Info("solve finished",
		"run_id", res.RunID.String(),
		"points", len(res.Points),
		"steps", res.Report.Steps,
		"final_error", res.Report.FinalError)
	return nil
}
