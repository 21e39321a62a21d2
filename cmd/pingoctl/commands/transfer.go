package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type transferView struct {
	ID            string `json:"id"`
	FileName      string `json:"file_name"`
	FileSize      int64  `json:"file_size"`
	Role          string `json:"role"`
	Complete      bool   `json:"complete"`
	MissingChunks int    `json:"missing_chunks"`
	TotalChunks   int    `json:"total_chunks"`
}

func transferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Inspect in-flight and completed file transfers",
	}
	cmd.AddCommand(transferListCmd())
	return cmd
}

func transferListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all tracked transfers",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var transfers []transferView
			if err := getJSON("/v1/transfers", &transfers); err != nil {
				return fmt.Errorf("list transfers: %w", err)
			}

			out, err := formatTransfers(transfers, outputFormat)
			if err != nil {
				return fmt.Errorf("format transfers: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

func formatTransfers(transfers []transferView, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONBody(transfers)
	case formatTable:
		return formatTransfersTable(transfers), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatTransfersTable(transfers []transferView) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFILE\tSIZE\tROLE\tCOMPLETE\tMISSING/TOTAL")

	for _, t := range transfers {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%t\t%d/%d\n",
			t.ID, t.FileName, t.FileSize, t.Role, t.Complete, t.MissingChunks, t.TotalChunks)
	}

	w.Flush()
	return buf.String()
}
