package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/onnxgraph/pkg/config"
)

// configCommand prints the effective configuration as TOML. The output is a
// valid config file, so it can seed a new one.
func (c *CLI) configCommand() *cobra.Command {
	var showPath bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			if showPath {
				fmt.Fprintln(stdout, path)
				return nil
			}
			fmt.Fprintf(stdout, "# %s\n", path)
			return c.Config.Encode(stdout)
		},
	}

	cmd.Flags().BoolVar(&showPath, "path", false, "print only the config file path")
	return cmd
}
