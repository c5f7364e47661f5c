package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"logoforge/internal/domain"
)

// NewSizesCommand prints the static size table.
func NewSizesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sizes",
		Short: "Print the size variant table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(domain.SizeTable())
			}
			for _, category := range domain.SizeCategories {
				dims := make([]string, 0, 4)
				for _, dim := range domain.SizesFor(category) {
					dims = append(dims, fmt.Sprintf("%dx%d", dim, dim))
				}
				fmt.Fprintf(out, "%-8s %s\n", category, strings.Join(dims, " "))
			}
			return nil
		},
	}
}
