package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lhoral/ponder/internal/warehouse"
)

// warehouseClient is the subset of *warehouse.Client used by the query
// command, declared here for testing.
type warehouseClient interface {
	QueryMarkdown(ctx context.Context, query string) (string, error)
	QueryMaps(ctx context.Context, query string) ([]map[string]string, error)
	SchemaNames(ctx context.Context) ([]string, error)
	TableNames(ctx context.Context, schema string) ([]string, error)
	Close() error
}

var newWarehouseClient = func(p warehouse.Params) (warehouseClient, error) {
	return warehouse.NewClient(p)
}

func newQueryCmd() *cobra.Command {
	var (
		asJSON      bool
		listSchemas bool
		listTables  string
	)

	cmd := &cobra.Command{
		Use:     "query [statement]",
		Aliases: []string{"q"},
		Short:   "Run a SQL statement against the configured warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configLoad()
			if err != nil {
				return err
			}
			if cfg.Snowflake.Account == "" {
				return errors.New("no snowflake warehouse configured")
			}

			client, err := newWarehouseClient(warehouse.Params{
				Account:   cfg.Snowflake.Account,
				User:      cfg.Snowflake.User,
				Password:  cfg.Snowflake.Password,
				Role:      cfg.Snowflake.Role,
				Warehouse: cfg.Snowflake.Warehouse,
				Database:  cfg.Snowflake.Database,
			})
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			switch {
			case listSchemas:
				names, err := client.SchemaNames(ctx)
				if err != nil {
					return err
				}
				return printNames(out, names)
			case listTables != "":
				names, err := client.TableNames(ctx, listTables)
				if err != nil {
					return err
				}
				return printNames(out, names)
			}

			if len(args) != 1 {
				return errors.New("expected exactly one SQL statement")
			}

			if asJSON {
				rows, err := client.QueryMaps(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}

			table, err := client.QueryMarkdown(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output rows as JSON instead of a markdown table")
	cmd.Flags().BoolVar(&listSchemas, "schemas", false, "List schemas in the configured database")
	cmd.Flags().StringVar(&listTables, "tables", "", "List tables in the given schema")
	return cmd
}

func printNames(out io.Writer, names []string) error {
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}
