package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/watch"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <local-dir>",
		Short: "Upload files as they appear in a local directory",
		Long: `Watch a local directory and upload every file created or changed in it
into --folder. Subdirectories map to remote folders of the same name, created
when missing. Files present before the watch starts are not uploaded.`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().Duration("settle", 0, "quiet period before a changed file is uploaded (default 2s)")
	cmd.Flags().Bool("new-version", false, "add a version when an item with the same name exists")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	settle, err := cmd.Flags().GetDuration("settle")
	if err != nil {
		return err
	}

	newVersion, err := cmd.Flags().GetBool("new-version")
	if err != nil {
		return err
	}

	s, err := NewSession(ctx, resolvedCfg, flagAuthMode, logger)
	if err != nil {
		return err
	}

	projectID, err := s.projectID()
	if err != nil {
		return err
	}

	folderID, err := s.folderID()
	if err != nil {
		return err
	}

	j, err := openJournal(ctx, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	orch, err := s.Orchestrator(j, conflictMode(newVersion))
	if err != nil {
		return err
	}

	w := watch.New(orch, s.Navigator(), watch.Options{
		Root:      args[0],
		ProjectID: projectID,
		FolderID:  folderID,
		Settle:    settle,
		OnUpload: func(localPath string, item *dm.Item, err error) {
			if err != nil {
				statusf("FAILED %s: %v\n", localPath, err)
				return
			}

			statusf("uploaded %s -> %s\n", localPath, item.ID)
		},
	}, logger)

	statusf("Watching %s (Ctrl-C to stop)\n", args[0])

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("watch stopped", slog.String("root", args[0]))

	return nil
}
