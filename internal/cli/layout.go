package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/onnxgraph/pkg/layout"
	"github.com/matzehuels/onnxgraph/pkg/nodegraph"
	"github.com/matzehuels/onnxgraph/pkg/pipeline"
)

// layoutFlags are the command-line overrides for the [layout] section.
type layoutFlags struct {
	forward bool
	hgap    float64
	vgap    float64
	scaleX  float64
	scaleY  float64
	refresh bool
}

func (f *layoutFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.forward, "forward", false, "lay out from inputs instead of from outputs")
	cmd.Flags().Float64Var(&f.hgap, "hgap", layout.DefaultHGap, "horizontal gap between vertices in layout units")
	cmd.Flags().Float64Var(&f.vgap, "vgap", layout.DefaultVGap, "vertical gap between layers in layout units")
	cmd.Flags().Float64Var(&f.scaleX, "scale-x", layout.DefaultScaleX, "canvas units per layout unit (x)")
	cmd.Flags().Float64Var(&f.scaleY, "scale-y", layout.DefaultScaleY, "canvas units per layout unit (y)")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even if a cached layout exists")
}

// options merges flags that were set on the command line over base.
func (f *layoutFlags) options(cmd *cobra.Command, base layout.Options) layout.Options {
	flags := cmd.Flags()
	if flags.Changed("forward") {
		base.Reverse = !f.forward
	}
	if flags.Changed("hgap") {
		base.HGap = f.hgap
	}
	if flags.Changed("vgap") {
		base.VGap = f.vgap
	}
	if flags.Changed("scale-x") {
		base.ScaleX = f.scaleX
	}
	if flags.Changed("scale-y") {
		base.ScaleY = f.scaleY
	}
	return base
}

// layoutCommand creates the layout command, which positions every vertex
// and saves the result as a session.
func (c *CLI) layoutCommand() *cobra.Command {
	var (
		output string
		flags  layoutFlags
	)

	cmd := &cobra.Command{
		Use:   "layout [model]",
		Short: "Auto-layout a model and save it as a session",
		Long: `Layout imports a model, positions its vertices with a layered layout and
writes the visual graph as a JSON session that render and export accept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			runner, err := c.newRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			res, err := runner.Execute(ctx, pipeline.Options{
				Source:  args[0],
				Layout:  flags.options(cmd, c.Config.LayoutOptions()),
				Refresh: flags.refresh,
				Logger:  logger,
			})
			if err != nil {
				return err
			}

			if output == "" {
				output = sessionPath(args[0])
			}
			if err := nodegraph.WriteFile(output, res.Graph); err != nil {
				return err
			}

			printSuccess("Laid out %s", filepath.Base(args[0]))
			printStats(res.Stats.VertexCount, res.Stats.EdgeCount, res.CacheInfo.LayoutHit)
			printFile(output)
			printNextStep("Render it", appName+" render "+output+" --positions")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "session file (default <model>.json)")
	flags.register(cmd)
	return cmd
}

// sessionPath swaps the extension of path for the session extension.
func sessionPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + pipeline.SessionExt
}
