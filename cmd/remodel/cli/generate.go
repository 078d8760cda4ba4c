package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/remodeldb/remodel/internal/gen"
	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/openapi"
)

func newGenerateCmd() *cobra.Command {
	var (
		src         sourceFlags
		mappingFile string
		outFile     string
		pkgName     string
		openapiFile string
		full        bool
		noEntities  bool
		save        string
	)

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate the mapping document and Go entity declarations",
		Long: `Introspect the configured database and write two files: the YAML mapping
document and the Go source declaring one entity per selected table.

The mapping document is minimized by default; pass --full to keep every
derivable value spelled out. Pass "-" as a file name to write to stdout.`,
		Example: `  remodel generate --dsn "postgres://app@localhost/shop"
  remodel generate --tables "public.*" --mapping shop.mapping.yaml --out entities.gen.go
  remodel generate --mapping - --no-entities       # document to stdout
  remodel generate --save nightly                  # archive a snapshot for later diffs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(src, mappingFile, outFile, pkgName, openapiFile, full, noEntities, save)
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().StringVar(&mappingFile, "mapping", "", "Mapping document file (default from config, \"-\" for stdout)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "Entity source file (default from config, \"-\" for stdout)")
	cmd.Flags().StringVar(&pkgName, "package", "", "Package name for the generated source")
	cmd.Flags().StringVar(&openapiFile, "openapi", "", "Also write the preview API OpenAPI document to this file")
	cmd.Flags().BoolVar(&full, "full", false, "Write the fully resolved mapping instead of the minimized document")
	cmd.Flags().BoolVar(&noEntities, "no-entities", false, "Skip the Go source file, write only the mapping document")
	cmd.Flags().StringVar(&save, "save", "", "Archive this run as a labeled snapshot for 'remodel diff --against'")

	return cmd
}

func runGenerate(src sourceFlags, mappingFile, outFile, pkgName, openapiFile string, full, noEntities bool, save string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := src.apply(cfg); err != nil {
		return err
	}
	if pkgName != "" {
		cfg.Output.Package = pkgName
	}
	if mappingFile == "" {
		mappingFile = cfg.Output.Mapping
	}
	if outFile == "" {
		outFile = cfg.Output.Entities
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

	defs := result.Minimized
	if full {
		defs = result.Defs
	}
	doc, err := mapping.MarshalDocument(defs)
	if err != nil {
		return err
	}
	if err := writeOutput(mappingFile, doc); err != nil {
		return fmt.Errorf("write mapping document: %w", err)
	}
	if mappingFile != "-" {
		fmt.Printf("Wrote %s (%d entities)\n", mappingFile, len(defs))
	}

	if !noEntities {
		file, err := gen.Build(result.Defs, genOptions(cfg))
		if err != nil {
			return err
		}
		target := outFile
		if target == "" {
			target = file.Name
		}
		if err := writeOutput(target, file.Content); err != nil {
			return fmt.Errorf("write entity source: %w", err)
		}
		if target != "-" {
			fmt.Printf("Wrote %s\n", target)
		}
	}

	if openapiFile == "" {
		openapiFile = cfg.Output.OpenAPI
	}
	if openapiFile != "" {
		docT, err := openapi.Build(result, appVersion)
		if err != nil {
			return fmt.Errorf("build OpenAPI document: %w", err)
		}
		b, err := json.MarshalIndent(docT, "", "  ")
		if err != nil {
			return fmt.Errorf("encode OpenAPI document: %w", err)
		}
		if err := writeOutput(openapiFile, b); err != nil {
			return fmt.Errorf("write OpenAPI document: %w", err)
		}
		if openapiFile != "-" {
			fmt.Printf("Wrote %s\n", openapiFile)
		}
	}

	if save != "" {
		st, err := openSnapshotStore()
		if err != nil {
			return fmt.Errorf("open snapshot archive: %w", err)
		}
		defer st.Close()

		// Snapshots keep the fully resolved form so diffs never depend on
		// the convention that minimized the document.
		snap, err := st.SaveSnapshot(ctx, save, result.Dialect, result.Schema, result.Defs)
		if err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		fmt.Printf("Saved snapshot %q (%s)\n", snap.Label, snap.ID)
	}

	return nil
}
