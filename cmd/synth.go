package main

import (
	"io"

	"github.com/spf13/cobra"

	"lensblur/export"
	"lensblur/synth"
	"lensblur/track"
)

// NewSynthCommand synth 子命令: 生成仿真跟踪记录
func NewSynthCommand(root *RootOptions) *cobra.Command {
	var (
		out   string
		truth string
		opt   synth.Options
	)
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate feature tracks for a synthetic scene",
		Long: `Generate a random scene with known cameras and points and write the
pixel tracks a perfect tracker would report, for use with solve.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := root.Config
			flags := cmd.Flags()
			if flags.Changed("cameras") {
				c.Synth.Cameras = opt.Cameras
			}
			if flags.Changed("points") {
				c.Synth.Points = opt.Points
			}
			if flags.Changed("noise") {
				c.Synth.Noise = opt.Noise
			}
			if flags.Changed("lost") {
				c.Synth.Lost = opt.Lost
			}
			if flags.Changed("seed") {
				c.Synth.Seed = opt.Seed
			}
			if err := c.Validate(); err != nil {
				return err
			}
			scene, err := synth.Generate(c.Synth)
			if err != nil {
				return err
			}
			tracks := scene.Tracks(c.Normalization)
			root.Logger.Info("synthetic scene generated",
				"cameras", len(scene.Cameras),
				"points", len(scene.Points),
				"survival", tracks.Survival())
			if err := writeFile(truth, cmd.OutOrStdout(), func(w io.Writer) error {
				return export.WritePoints(w, scene.Points, c.Output.Scale)
			}); err != nil {
				return err
			}
			return track.Save(out, tracks)
		},
	}
	d := synth.DefaultOptions()
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "tracks.yaml", "tracks file to write")
	f.StringVar(&truth, "truth", "", "ground truth point CSV output")
	f.IntVar(&opt.Cameras, "cameras", d.Cameras, "number of cameras (frames)")
	f.IntVar(&opt.Points, "points", d.Points, "number of feature points")
	f.Float64Var(&opt.Noise, "noise", d.Noise, "observation noise in normalized units")
	f.Float64Var(&opt.Lost, "lost", d.Lost, "per-frame probability of losing a track")
	f.Int64Var(&opt.Seed, "seed", d.Seed, "random seed")
	return cmd
}
