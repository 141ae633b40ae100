package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-container/framework/container"
)

func newGraphCmd() *cobra.Command {
	var dot bool

	cmd := &cobra.Command{
		Use:   "graph <manifest.yaml>",
		Short: "Print services in build order (dependencies first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, err := compile(args[0])
			if err != nil {
				return err
			}
			if dot {
				return writeDot(cmd.OutOrStdout(), c)
			}
			for i, key := range c.BuildOrder() {
				def, _ := c.Definition(key)
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s", i+1, key)
				if len(def.Deps) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "  <- %v", def.Deps)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dot, "dot", false, "emit Graphviz dot")
	return cmd
}

func writeDot(w io.Writer, c *container.Container) error {
	fmt.Fprintln(w, "digraph container {")
	fmt.Fprintln(w, "  rankdir=LR;")
	for _, key := range c.BuildOrder() {
		def, _ := c.Definition(key)
		shape := "box"
		if def.Sharing == container.Prototype {
			shape = "ellipse"
		}
		fmt.Fprintf(w, "  %q [shape=%s];\n", key, shape)
		for _, dep := range def.Deps {
			fmt.Fprintf(w, "  %q -> %q;\n", key, dep)
		}
	}
	aliases := c.Aliases()
	names := make([]string, 0, len(aliases))
	for alias := range aliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	for _, alias := range names {
		fmt.Fprintf(w, "  %q -> %q [style=dashed];\n", alias, aliases[alias])
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
