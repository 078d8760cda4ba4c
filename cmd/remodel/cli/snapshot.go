package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage archived mapping snapshots",
		Long: `Snapshots are mapping documents archived by 'generate --save'. They live
in a local SQLite database under the data directory and serve as the
recorded side of 'remodel diff --against'.`,
	}

	cmd.AddCommand(newSnapshotListCmd())
	cmd.AddCommand(newSnapshotShowCmd())
	cmd.AddCommand(newSnapshotRmCmd())

	return cmd
}

func newSnapshotListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSnapshotList(jsonOutput bool) error {
	st, err := openSnapshotStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snaps, err := st.ListSnapshots(context.Background())
	if err != nil {
		return err
	}

	if jsonOutput {
		type entry struct {
			ID         string    `json:"id"`
			Label      string    `json:"label,omitempty"`
			Dialect    string    `json:"dialect"`
			Schema     string    `json:"schema,omitempty"`
			TableCount int       `json:"table_count"`
			CreatedAt  time.Time `json:"created_at"`
		}
		entries := make([]entry, len(snaps))
		for i, s := range snaps {
			entries[i] = entry{
				ID:         s.ID,
				Label:      s.Label,
				Dialect:    s.Dialect,
				Schema:     s.Schema,
				TableCount: s.TableCount,
				CreatedAt:  s.CreatedAt,
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(snaps) == 0 {
		fmt.Println("No snapshots archived. Create one with 'remodel generate --save <label>'.")
		return nil
	}

	fmt.Printf("%-10s %-18s %-10s %7s  %s\n", "ID", "LABEL", "DIALECT", "TABLES", "CREATED")
	for _, s := range snaps {
		label := s.Label
		if label == "" {
			label = "-"
		}
		fmt.Printf("%-10s %-18s %-10s %7d  %s\n",
			shortID(s.ID), label, s.Dialect, s.TableCount, s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func newSnapshotShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ref>",
		Short: "Print an archived mapping document",
		Long: `Resolve a snapshot by label, ID, or ID prefix and print its mapping
document to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotShow(args[0])
		},
	}
}

func runSnapshotShow(ref string) error {
	st, err := openSnapshotStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.FindSnapshot(context.Background(), ref)
	if err != nil {
		return fmt.Errorf("resolve snapshot %q: %w", ref, err)
	}

	fmt.Print(snap.Document)
	return nil
}

func newSnapshotRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <ref>",
		Aliases: []string{"delete"},
		Short:   "Delete an archived snapshot",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotRm(args[0])
		},
	}
}

func runSnapshotRm(ref string) error {
	st, err := openSnapshotStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	snap, err := st.FindSnapshot(ctx, ref)
	if err != nil {
		return fmt.Errorf("resolve snapshot %q: %w", ref, err)
	}
	if err := st.DeleteSnapshot(ctx, snap.ID); err != nil {
		return err
	}

	if snap.Label != "" {
		fmt.Printf("Deleted snapshot %s (%q)\n", shortID(snap.ID), snap.Label)
	} else {
		fmt.Printf("Deleted snapshot %s\n", shortID(snap.ID))
	}
	return nil
}

// shortID truncates a UUID for table display. FindSnapshot accepts any
// unambiguous prefix, so the short form stays usable as a reference.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
