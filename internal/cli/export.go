package cli

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	oerrors "github.com/matzehuels/onnxgraph/pkg/errors"
	"github.com/matzehuels/onnxgraph/pkg/pipeline"
	"github.com/matzehuels/onnxgraph/pkg/translate"
)

// exportFlags are the command-line overrides for the [export] section.
type exportFlags struct {
	producerName    string
	producerVersion string
	irVersion       int64
	modelVersion    int64
}

func (f *exportFlags) options(cmd *cobra.Command, base translate.ExportOptions) translate.ExportOptions {
	flags := cmd.Flags()
	if flags.Changed("producer-name") {
		base.ProducerName = f.producerName
	}
	if flags.Changed("producer-version") {
		base.ProducerVersion = f.producerVersion
	}
	if flags.Changed("ir-version") {
		base.IRVersion = f.irVersion
	}
	if flags.Changed("model-version") {
		base.ModelVersion = f.modelVersion
	}
	return base
}

// exportCommand creates the export command, which translates a model or
// session back into a checked ONNX model.
func (c *CLI) exportCommand() *cobra.Command {
	var (
		output string
		flags  exportFlags
	)

	cmd := &cobra.Command{
		Use:   "export [model|session]",
		Short: "Export a model or session as a checked ONNX model",
		Long: `Export re-hydrates the visual graph into an ONNX model, stamps producer
metadata, runs the model checker and writes the file only if it passes.
Per-node schema problems are reported as warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			step := startStep(loggerFromContext(ctx))
			runner, err := c.newRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinnerWithContext(ctx, "Loading "+filepath.Base(args[0])+"...")
			spinner.Start()
			g, err := runner.Load(ctx, args[0])
			if err != nil {
				spinner.StopWithError("Load failed")
				return err
			}
			if output == "" {
				output = exportPath(args[0])
			}

			spinner.Update("Checking and writing " + filepath.Base(output) + "...")
			res, err := runner.Save(ctx, g, output, flags.options(cmd, c.Config.ExportOptions()))
			spinner.Stop()
			for _, w := range res.Warnings {
				printWarning("%s", w.Error())
			}
			if err != nil {
				printError("Export failed: %s", oerrors.UserMessage(err))
				return err
			}

			step.done("exported model", "path", output, "nodes", len(res.Model.Graph.Nodes))
			printSuccess("Exported %s", filepath.Base(args[0]))
			printDetail("%d nodes · opset %d · ir %d",
				len(res.Model.Graph.Nodes), res.Model.Opset(""), res.Model.IRVersion)
			if n := len(res.Warnings); n > 0 {
				printDetail("%d schema %s", n, plural(n, "warning", "warnings"))
			}
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "model file (default <input>.onnx, or <input>.out.onnx for models)")
	cmd.Flags().StringVar(&flags.producerName, "producer-name", "", "producer_name stamped on the model")
	cmd.Flags().StringVar(&flags.producerVersion, "producer-version", "", "producer_version stamped on the model")
	cmd.Flags().Int64Var(&flags.irVersion, "ir-version", 0, "ir_version stamped on the model (0 keeps the imported one)")
	cmd.Flags().Int64Var(&flags.modelVersion, "model-version", 0, "model_version stamped on the model")
	return cmd
}

// exportPath picks an output next to path that never overwrites a model.
func exportPath(path string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	if pipeline.IsSession(path) {
		return base + ".onnx"
	}
	return base + ".out.onnx"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
