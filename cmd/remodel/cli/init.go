package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/remodeldb/remodel/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter config file",
		Long: `Write a remodel.yaml with the default settings to the given path, or to
the current directory. Edit source.dsn afterwards, or leave it empty and
pass --dsn / set REMODEL_SOURCE_DSN at run time.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "remodel.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			return runInit(path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	return cmd
}

func runInit(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; pass --force to overwrite", path)
		}
	}
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
