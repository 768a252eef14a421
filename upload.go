package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/upload"
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <local-file>",
		Short: "Upload a file into --folder as a new item",
		Long: `Upload a local file through the five-stage pipeline: reserve storage,
obtain a signed upload URL, PUT the bytes, finalize the upload, and publish
the item with its first version.

A failed upload leaves its reserved storage behind. With orphan_policy =
"delete" it is removed; otherwise "apsdm uploads --orphans" lists it.`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().String("name", "", "item name (default: the local file name)")
	cmd.Flags().String("content-type", "", "content type (default: guessed from the extension)")
	cmd.Flags().Bool("new-version", false, "add a version when an item with the same name exists")

	return cmd
}

// uploadOutput is the JSON schema for `upload --json`.
type uploadOutput struct {
	ItemID    string `json:"item_id"`
	Name      string `json:"name"`
	VersionID string `json:"version_id,omitempty"`
	Version   int    `json:"version,omitempty"`
	StorageID string `json:"storage_id,omitempty"`
}

func runUpload(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	ctx := shutdownContext(cmd.Context(), logger)

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	contentType, err := cmd.Flags().GetString("content-type")
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

	item, err := orch.UploadFile(ctx, projectID, folderID, args[0], name, contentType)
	if err != nil {
		return describeUploadError(err)
	}

	out := toUploadOutput(item)

	logger.Info("upload published", slog.String("item_id", out.ItemID), slog.String("version_id", out.VersionID))

	if flagJSON {
		return printJSON(out)
	}

	statusf("Uploaded %s\n", out.Name)
	fmt.Println(out.ItemID)

	return nil
}

// conflictMode maps --new-version onto the configured conflict mode.
func conflictMode(newVersion bool) upload.ConflictMode {
	if newVersion {
		return upload.ConflictNewVersion
	}

	return resolvedCfg.Conflict
}

func toUploadOutput(item *dm.Item) uploadOutput {
	out := uploadOutput{ItemID: item.ID, Name: item.DisplayName}

	if n := len(item.Versions); n > 0 {
		v := item.Versions[n-1]
		out.VersionID = v.ID
		out.Version = v.VersionNumber
		out.StorageID = v.StorageID
	}

	return out
}

// describeUploadError adds the orphaned storage id to a pipeline failure so
// the user can find it without the journal.
func describeUploadError(err error) error {
	var fe *upload.FailedError
	if !errors.As(err, &fe) || !fe.Attempt.Orphaned() {
		return err
	}

	if resolvedCfg != nil && resolvedCfg.OrphanPolicy == upload.PolicyDelete {
		return err
	}

	fmt.Fprintf(os.Stderr, "Storage left behind: %s\n", fe.Attempt.StorageID)

	return err
}
