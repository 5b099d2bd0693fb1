package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/checklist/internal/schema"
	"github.com/mesh-intelligence/checklist/pkg/checklist"
)

func newVersionCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the checklist version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			latest := schema.NewRegistry().Latest().String()
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": checklist.Version,
					"module":  checklist.ModulePath,
					"schema":  latest,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checklist v%s\nmodule: %s\nschema: %s\n", checklist.Version, checklist.ModulePath, latest)
			return nil
		},
	}
}
