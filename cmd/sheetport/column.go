package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetport/internal/core"
)

func newColumnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "column REF...",
		Short: "Convert column numbers to letters and back",
		Long: `Print the other spelling of each column reference: 28 prints AB and AB
prints 28. References are 1-based; letters are case-insensitive. A cell
address such as C7 prints the number of its column.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, arg := range args {
				ref, err := core.ResolveColumn(arg)
				if err != nil {
					errs = append(errs, fmt.Errorf("%q: %w", arg, err))
					continue
				}
				if _, numErr := strconv.Atoi(arg); numErr == nil {
					fmt.Fprintln(cmd.OutOrStdout(), ref.Letters)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), ref.Number)
				}
			}
			return errors.Join(errs...)
		},
	}
}
