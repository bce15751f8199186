package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"headroom-havens-backend/internal/catalog"
)

func convertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <cm>...",
		Short: "Convert centimetres to feet and inches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				cm, err := strconv.ParseFloat(arg, 64)
				if err != nil || cm < 0 {
					return fmt.Errorf("invalid length %q", arg)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s cm = %s\n", arg, catalog.CmToFeetInches(cm))
			}
			return nil
		},
	}
}
