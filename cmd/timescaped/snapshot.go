package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krishnapaul242/gati-sub004/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export, import, and list registry snapshots",
	}
	cmd.AddCommand(newSnapshotExportCmd())
	cmd.AddCommand(newSnapshotImportCmd())
	cmd.AddCommand(newSnapshotListCmd())
	return cmd
}

func newSnapshotExportCmd() *cobra.Command {
	var heavy bool
	var dest string
	cmd := &cobra.Command{
		Use:   "export <snapshot-id>",
		Short: "Take a snapshot (or export an existing one) to a destination file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}

			id := ""
			if len(args) == 1 {
				id = args[0]
			} else {
				typ := snapshot.TypeLight
				if heavy {
					typ = snapshot.TypeHeavy
				}
				info, err := a.snapshot.Take(cmd.Context(), typ)
				if err != nil {
					return fmt.Errorf("take snapshot: %w", err)
				}
				id = info.ID
				fmt.Printf("took snapshot %s (%s)\n", id, typ)
			}

			if dest == "" {
				dest = id + ".json"
			}
			if err := a.snapshot.Export(cmd.Context(), id, dest); err != nil {
				return fmt.Errorf("export snapshot: %w", err)
			}
			fmt.Printf("exported %s to %s\n", id, dest)
			return nil
		},
	}
	cmd.Flags().BoolVar(&heavy, "heavy", false, "take a heavy snapshot (includes artifacts) instead of light")
	cmd.Flags().StringVar(&dest, "dest", "", "destination file path (default: <id>.json)")
	return cmd
}

func newSnapshotImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Import an exported snapshot document from disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			info, err := a.snapshot.Import(args[0])
			if err != nil {
				return fmt.Errorf("import snapshot: %w", err)
			}
			fmt.Printf("imported %s (%s, %d bytes)\n", info.ID, info.Type, info.SizeBytes)
			return nil
		},
	}
}

func newSnapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots in the configured snapshot directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			infos, err := a.snapshot.List()
			if err != nil {
				return fmt.Errorf("list snapshots: %w", err)
			}
			for _, info := range infos {
				fmt.Printf("%s\t%s\t%s\t%d bytes\n", info.ID, info.Type, info.Timestamp.Format("2006-01-02T15:04:05Z07:00"), info.SizeBytes)
			}
			report, err := a.snapshot.StatsReport()
			if err != nil {
				return fmt.Errorf("stats report: %w", err)
			}
			fmt.Println("---")
			fmt.Print(string(report))
			return nil
		},
	}
}
