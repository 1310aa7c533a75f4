package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/kvlog/pkg/dict"
)

// manifestEntry is one {key, value} pair in an apply manifest.
type manifestEntry struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <manifest.yaml>",
		Short: "Bulk-load a YAML manifest of key/value pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read manifest: %w", err)
			}
			var entries []manifestEntry
			if err := yaml.Unmarshal(raw, &entries); err != nil {
				return fmt.Errorf("parse manifest: %w", err)
			}

			return withDict(func(ctx context.Context, d *dict.Dict) error {
				for _, e := range entries {
					if err := d.Set(ctx, []byte(e.Key), e.Value, nil); err != nil {
						return fmt.Errorf("apply key %q: %w", e.Key, err)
					}
				}
				return nil
			})
		},
	}
}
