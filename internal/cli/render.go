package cli

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/onnxgraph/pkg/buildinfo"
	"github.com/matzehuels/onnxgraph/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output    string // output file (single format) or base path (multiple)
	formats   string // comma-separated: svg, png, pdf, dot
	detailed  bool   // show op, dtype and attribute names in vertex labels
	positions bool   // pin vertices at their canvas positions
	noLayout  bool   // keep stored positions instead of laying out
	layout    layoutFlags
}

// renderCommand creates the render command for drawing node-link diagrams.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [model|session]",
		Short: "Render a model or session as a node-link diagram",
		Long: `Render draws the visual graph with Graphviz. Connections leaving graph
inputs are labelled with the input shape. With --positions the vertices are
pinned where the layout put them; otherwise Graphviz arranges them.

PNG and PDF output requires rsvg-convert (librsvg).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formats := pipeline.ParseFormats(opts.formats)
			if len(formats) == 0 {
				formats = []string{pipeline.FormatSVG}
			}
			if err := pipeline.ValidateFormats(formats); err != nil {
				return err
			}
			return c.runRender(cmd, args[0], formats, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), png, pdf, dot (comma-separated)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show op, type and attribute names in labels")
	cmd.Flags().BoolVar(&opts.positions, "positions", false, "draw vertices at their layout positions")
	cmd.Flags().BoolVar(&opts.noLayout, "no-layout", false, "keep stored positions (sessions) instead of laying out")
	opts.layout.register(cmd)
	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, source string, formats []string, opts *renderOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	logger.Debug("graphviz", "version", buildinfo.ModuleVersion("github.com/goccy/go-graphviz"))

	runner, err := c.newRunner()
	if err != nil {
		return err
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering "+strings.Join(formats, ", ")+"...")
	spinner.Start()
	res, err := runner.Execute(ctx, pipeline.Options{
		Source:     source,
		Layout:     opts.layout.options(cmd, c.Config.LayoutOptions()),
		SkipLayout: opts.noLayout,
		Formats:    formats,
		Detailed:   opts.detailed,
		Positions:  opts.positions,
		Refresh:    opts.layout.refresh,
		Logger:     logger,
	})
	if err != nil {
		spinner.StopWithError("Render failed")
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered %s", filepath.Base(source)))
	printStats(res.Stats.VertexCount, res.Stats.EdgeCount, res.CacheInfo.RenderHit)

	for _, format := range slices.Sorted(maps.Keys(res.Artifacts)) {
		data := res.Artifacts[format]
		path := outputPath(source, opts.output, format, len(formats) > 1)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", format, err)
		}
		printFile(fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(len(data)))))
	}
	return nil
}

// outputPath picks the file for one format. A single format writes to
// output as given; multiple formats treat output as a base path.
func outputPath(source, output, format string, multi bool) string {
	if output != "" && !multi {
		return output
	}
	base := output
	if base == "" {
		base = source
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "." + format
}
