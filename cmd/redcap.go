package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	service "github.com/okian/demoreport/internal/app"
	"github.com/okian/demoreport/pkg/logger"
)

func newRedcapCommand(_ *commandContext) *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "redcap",
		Short: "Recode a demographic report into a REDCap import file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				out = strings.TrimSuffix(in, ".xlsx") + "_redcap.csv"
			}
			svc := service.New(service.WithLogger(logger.Named("recode")))
			n, err := svc.Recode(cmd.Context(), in, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in, "input", "i", "", "Report workbook to recode")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Import file to write (default: <input>_redcap.csv)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
