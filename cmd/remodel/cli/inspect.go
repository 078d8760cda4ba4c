package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	var (
		src        sourceFlags
		tableName  string
		jsonOutput bool
		save       string
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Introspect the database and list the selected tables",
		Long: `Connect to the configured database, introspect its schema, and show the
tables the selector picks up plus everything reachable through their
foreign keys. Use --table to dump the full shape of a single table.`,
		Example: `  remodel inspect --dsn "postgres://app@localhost/shop"
  remodel inspect --tables "public.*, !audit_*"
  remodel inspect --table billing.plans --json
  remodel inspect --save baseline`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(src, tableName, jsonOutput, save)
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().StringVar(&tableName, "table", "", "Show the full shape of a single table only")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&save, "save", "", "Archive this run as a labeled snapshot for 'remodel diff --against'")

	return cmd
}

func runInspect(src sourceFlags, tableName string, jsonOutput bool, save string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := src.apply(cfg); err != nil {
		return err
	}
	logger := newLogger(cfg)

	in, err := connectSource(cfg, logger)
	if err != nil {
		return err
	}
	defer in.Disconnect()

	pipeline, err := buildPipeline(cfg, in, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if save != "" {
		st, err := openSnapshotStore()
		if err != nil {
			return fmt.Errorf("open snapshot archive: %w", err)
		}
		defer st.Close()

		snap, err := st.SaveSnapshot(ctx, save, result.Dialect, result.Schema, result.Defs)
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved snapshot %q (%s)\n", snap.Label, snap.ID)
	}

	if tableName != "" {
		table, ok := result.Table(tableName)
		if !ok {
			return fmt.Errorf("table %q not found in the selected schema", tableName)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Model.Tables())
	}

	fmt.Printf("Dialect: %s", result.Dialect)
	if result.Schema != "" {
		fmt.Printf("   Schema: %s", result.Schema)
	}
	fmt.Printf("   Tables: %d\n\n", len(result.Model))

	fmt.Printf("%-32s %-8s %-8s %-8s\n", "TABLE", "COLUMNS", "UNIQUES", "REFS")
	fmt.Printf("%-32s %-8s %-8s %-8s\n", "-----", "-------", "-------", "----")
	for _, name := range result.Model.Names() {
		t := result.Model[name]
		fmt.Printf("%-32s %-8d %-8d %-8d\n", name.String(), len(t.Columns), len(t.Uniques), len(t.Refs))
	}

	return nil
}
