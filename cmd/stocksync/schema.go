package main

import (
	"github.com/spf13/cobra"

	"github.com/komsit37/stocksync/pkg/stocksync/columns"
	"github.com/komsit37/stocksync/pkg/stocksync/render"
)

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the column order a sync would write before any data is seen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return render.Schema(cmd.OutOrStdout(), columns.BuildSchema(nil, a.cfg.Template()), renderOptions())
		},
	}
}
