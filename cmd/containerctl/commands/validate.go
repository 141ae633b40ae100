package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/km-arc/go-container/framework/manifest"
	"github.com/km-arc/go-container/http/validation"
)

// ErrInvalidManifest is returned when validate finds problems.
var ErrInvalidManifest = errors.New("manifest is invalid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <manifest.yaml>",
		Short: "Compile a manifest and report every problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			m, err := manifest.LoadFile(args[0])
			if err != nil {
				return err
			}

			problems := lintKeys(m)
			_, c, err := compile(args[0])
			if err != nil {
				problems = append(problems, flatten(err)...)
			}
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(out, "✗ %s\n", p)
				}
				return fmt.Errorf("%w: %d problem(s)", ErrInvalidManifest, len(problems))
			}

			fmt.Fprintf(out, "✓ %s: %d services, %d aliases, %d synthetic, %d removed\n",
				args[0], len(m.Services), len(c.Aliases()), len(m.Synthetic), len(m.Removed))
			return nil
		},
	}
}

// lintKeys checks every key in m with validation.KeyRules.
func lintKeys(m *manifest.Manifest) []string {
	data := make(map[string]string)
	rules := make(validation.Rules)
	add := func(field, key string) {
		data[field] = key
		rules[field] = validation.KeyRules
	}
	for _, k := range m.ServiceKeys() {
		add("services."+k, k)
	}
	for a := range m.Aliases {
		add("aliases."+a, a)
	}
	for a := range m.PrivateAliases {
		add("private_aliases."+a, a)
	}
	for i, k := range m.Synthetic {
		add(fmt.Sprintf("synthetic.%d", i), k)
	}
	v := validation.Make(data, rules)
	if v.Passes() {
		return nil
	}
	var out []string
	for field, msgs := range v.Errors().Bag {
		for _, msg := range msgs {
			out = append(out, fmt.Sprintf("%s: %s", field, msg))
		}
	}
	sort.Strings(out)
	return out
}

// flatten splits joined errors into one line each.
func flatten(err error) []string {
	var out []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
