package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/store"
)

func newDiffCmd() *cobra.Command {
	var (
		src         sourceFlags
		against     string
		mappingFile string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a recorded mapping against the live schema",
		Long: `Re-run introspection and compare the freshly generated mapping against a
recorded one: a snapshot archived with 'generate --save', or a mapping
document file. Additive drift means the recorded mapping is stale but
still valid; breaking drift means code generated from it no longer
matches the database.

The command exits non-zero on any drift, so it can gate regeneration in
CI.`,
		Example: `  remodel diff                        # against the most recent snapshot
  remodel diff --against nightly      # against a labeled snapshot
  remodel diff --mapping shop.mapping.yaml
  remodel diff --json                 # machine-readable report`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(src, against, mappingFile, jsonOutput)
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().StringVar(&against, "against", "", "Snapshot to compare against: label, ID, or ID prefix (default: latest)")
	cmd.Flags().StringVar(&mappingFile, "mapping", "", "Compare against a mapping document file instead of a snapshot")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the drift report as JSON")

	return cmd
}

func runDiff(src sourceFlags, against, mappingFile string, jsonOutput bool) error {
	if against != "" && mappingFile != "" {
		return fmt.Errorf("--against and --mapping are mutually exclusive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := src.apply(cfg); err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx := context.Background()

	recorded, recordedName, err := loadRecorded(ctx, against, mappingFile)
	if err != nil {
		return err
	}

	in, err := connectSource(cfg, logger)
	if err != nil {
		return err
	}
	defer in.Disconnect()

	pipeline, err := buildPipeline(cfg, in, logger)
	if err != nil {
		return err
	}
	result, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	report := mapping.Diff(recorded, result.Defs)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Printf("Comparing %s against the live %s schema\n\n", recordedName, result.Dialect)
		printReport(report)
	}

	if report.HasBreaking {
		return fmt.Errorf("mapping has breaking drift")
	}
	if report.HasDrift {
		return fmt.Errorf("mapping is stale; regenerate with 'remodel generate'")
	}
	return nil
}

// loadRecorded resolves the recorded side of the comparison: a mapping
// document file, or a snapshot from the archive.
func loadRecorded(ctx context.Context, against, mappingFile string) ([]mapping.Definition, string, error) {
	if mappingFile != "" {
		data, err := os.ReadFile(mappingFile)
		if err != nil {
			return nil, "", fmt.Errorf("read mapping document: %w", err)
		}
		defs, err := mapping.UnmarshalDocument(data)
		if err != nil {
			return nil, "", err
		}
		if isMinimized(defs) {
			fmt.Fprintf(os.Stderr, "note: %s is a minimized document; fields fully covered by the naming convention are invisible to the diff. Archive snapshots with 'generate --save' for exact drift checks.\n", mappingFile)
		}
		return canonicalize(defs), mappingFile, nil
	}

	if against == "" {
		against = "latest"
	}
	st, err := openSnapshotStore()
	if err != nil {
		return nil, "", fmt.Errorf("open snapshot archive: %w", err)
	}
	defer st.Close()

	var snap *store.Snapshot
	if against == "latest" {
		snap, err = st.LatestSnapshot(ctx)
	} else {
		snap, err = st.FindSnapshot(ctx, against)
	}
	if err != nil {
		return nil, "", fmt.Errorf("resolve snapshot %q: %w", against, err)
	}

	name := fmt.Sprintf("snapshot %q from %s", snap.Label, snap.CreatedAt.Format(time.RFC3339))
	return snap.Definitions, name, nil
}

// isMinimized reports whether the document was stripped of derivable values.
// Applied documents always spell out the auto key policy.
func isMinimized(defs []mapping.Definition) bool {
	for _, d := range defs {
		if d.AutoKey == "" {
			return true
		}
	}
	return false
}

// canonicalize fills convention defaults back into documents read from
// disk. Fully resolved documents pass through unchanged; minimized ones
// get every value their own records let the convention rebuild.
func canonicalize(defs []mapping.Definition) []mapping.Definition {
	conv := mapping.DefaultConvention{}
	out := make([]mapping.Definition, len(defs))
	for i, d := range defs {
		out[i] = mapping.ApplyDefaults(mapping.Skeleton(d), d, conv)
	}
	return out
}

func printReport(report mapping.Report) {
	if !report.HasDrift {
		fmt.Println("No drift: the live schema still matches the recorded mapping.")
		return
	}

	fmt.Printf("Drift in %d entities (%d additive, %d breaking)\n\n",
		report.DriftedEntities, report.AdditiveCount, report.BreakingCount)

	for _, ed := range report.Entities {
		if !ed.HasDrift {
			continue
		}
		fmt.Println(ed.Entity)
		for _, item := range ed.Items {
			marker := "+"
			if item.Type == mapping.DriftBreaking {
				marker = "!"
			}
			fmt.Printf("  %s %-20s %s\n", marker, item.Category, item.Description)
		}
		fmt.Println()
	}
}
