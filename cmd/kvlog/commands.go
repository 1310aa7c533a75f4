package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/kvlog/pkg/dict"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Fetch and print a key's current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDict(func(ctx context.Context, d *dict.Dict) error {
				value, err := d.Get(ctx, []byte(args[0]))
				if err != nil {
					return err
				}
				return printJSON(value)
			})
		},
	}
}

func newSetCmd() *cobra.Command {
	var timestampMs int64
	var hasTimestamp bool
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Publish a value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDict(func(ctx context.Context, d *dict.Dict) error {
				var ts *int64
				if hasTimestamp {
					ts = &timestampMs
				}
				return d.Set(ctx, []byte(args[0]), args[1], ts)
			})
		},
	}
	cmd.Flags().Int64Var(&timestampMs, "timestamp-ms", 0, "explicit record timestamp instead of the wall clock")
	cmd.Flags().BoolVar(&hasTimestamp, "with-timestamp", false, "use --timestamp-ms instead of the wall clock")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Publish a tombstone for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDict(func(ctx context.Context, d *dict.Dict) error {
				return d.Delete(ctx, []byte(args[0]))
			})
		},
	}
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List every key in ascending order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDict(func(ctx context.Context, d *dict.Dict) error {
				keys, err := d.Keys(ctx)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Println(string(k))
				}
				return nil
			})
		},
	}
}

func newItemsCmd() *cobra.Command {
	var prefixArg string
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List every (key, value) pair in ascending key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDict(func(ctx context.Context, d *dict.Dict) error {
				var prefixBytes []byte
				if cmd.Flags().Changed("prefix") {
					prefixBytes = []byte(prefixArg)
				}
				items, err := d.Items(ctx, prefixBytes)
				if err != nil {
					return err
				}
				for _, it := range items {
					valueJSON, err := json.Marshal(it.Value)
					if err != nil {
						return err
					}
					fmt.Printf("%s\t%s\n", it.Key, valueJSON)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&prefixArg, "prefix", "", "bound iteration to keys sharing this prefix")
	return cmd
}

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Compact the local store (no-op on the in-memory backend)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDict(func(ctx context.Context, d *dict.Dict) error {
				return d.Compact()
			})
		},
	}
}

func printJSON(value any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}
