package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type peerView struct {
	DeviceID string `json:"device_id"`
	Username string `json:"username"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Online   bool   `json:"online"`
}

func peerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Inspect LAN peers discovered via presence broadcast",
	}
	cmd.AddCommand(peerListCmd())
	return cmd
}

func peerListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all known peers",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var peers []peerView
			if err := getJSON("/v1/peers", &peers); err != nil {
				return fmt.Errorf("list peers: %w", err)
			}

			out, err := formatPeers(peers, outputFormat)
			if err != nil {
				return fmt.Errorf("format peers: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}

func formatPeers(peers []peerView, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatJSONBody(peers)
	case formatTable:
		return formatPeersTable(peers), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

func formatPeersTable(peers []peerView) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE-ID\tUSERNAME\tADDRESS\tONLINE")

	for _, p := range peers {
		fmt.Fprintf(w, "%s\t%s\t%s:%d\t%t\n", p.DeviceID, p.Username, p.IP, p.Port, p.Online)
	}

	w.Flush()
	return buf.String()
}
