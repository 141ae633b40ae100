package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/km-arc/go-container/framework/container"
)

func newInspectCmd() *cobra.Command {
	var status string
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "inspect <manifest.yaml> [key]",
		Short: "List the services of a manifest, or describe one key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := compile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 2 {
				info, ok := c.Inspect(args[1])
				if !ok {
					msg := fmt.Sprintf("unknown service %q", args[1])
					if s := c.Suggest(args[1]); s != "" {
						msg += fmt.Sprintf("; did you mean %q?", s)
					}
					return fmt.Errorf("%s", msg)
				}
				return writeInfo(out, []container.ServiceInfo{info}, asYAML)
			}

			var list []container.ServiceInfo
			for _, s := range c.Services() {
				if status == "" || s.Status == status {
					list = append(list, s)
				}
			}
			return writeInfo(out, list, asYAML)
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (constructible, removed, synthetic)")
	cmd.Flags().BoolVarP(&asYAML, "yaml", "y", false, "print YAML instead of a table")
	return cmd
}

func writeInfo(out io.Writer, list []container.ServiceInfo, asYAML bool) error {
	if asYAML {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(list); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tSTATUS\tSHARING\tPUBLIC\tDEPS\tALIASES")
	for _, s := range list {
		sharing := s.Sharing
		if s.Status == container.Removed.String() {
			sharing = "(" + string(s.RemovalReason) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\n",
			s.Key, s.Status, dash(sharing), s.Public,
			dash(strings.Join(s.Deps, ",")), dash(strings.Join(s.Aliases, ",")))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
