package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/manifest"
)

func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "containerctl",
		Short: "Validate and inspect service container manifests",
		Long: `containerctl compiles a service manifest with placeholder factories,
so the graph can be checked and inspected without the application code.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newValidateCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newGraphCmd())
	return root
}

// compile loads path and compiles it against a placeholder catalog.
func compile(path string) (*manifest.Manifest, *container.Container, error) {
	m, err := manifest.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	b := container.NewBuilder()
	if err := m.Apply(b, manifest.Placeholders(m)); err != nil {
		return m, nil, err
	}
	c, err := b.Compile()
	if err != nil {
		return m, nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, c, nil
}
