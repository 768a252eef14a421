package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/apsdm-go/internal/journal"
)

const defaultUploadsLimit = 50

func newUploadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "List recorded upload attempts",
		Long: `List upload attempts from the local journal, newest first. With --orphans,
list only failed attempts that left reserved storage behind.`,
		Args: cobra.NoArgs,
		RunE: runUploads,
	}

	cmd.Flags().Bool("orphans", false, "only attempts that left unpublished storage")
	cmd.Flags().Int("limit", defaultUploadsLimit, "maximum number of attempts to list")

	return cmd
}

// uploadEntryOutput is the JSON schema for one `uploads --json` entry.
type uploadEntryOutput struct {
	ID          string `json:"id"`
	FileName    string `json:"file_name"`
	Size        int64  `json:"size"`
	State       string `json:"state"`
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
	StorageID   string `json:"storage_id,omitempty"`
	ItemID      string `json:"item_id,omitempty"`
	Orphaned    bool   `json:"orphaned"`
	StartedAt   string `json:"started_at"`
}

func runUploads(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := buildLogger()

	orphans, err := cmd.Flags().GetBool("orphans")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	j, err := openJournal(ctx, logger)
	if err != nil {
		return err
	}
	defer j.Close()

	var entries []journal.Entry
	if orphans {
		entries, err = j.ListOrphans(ctx, limit)
	} else {
		entries, err = j.List(ctx, limit)
	}

	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(toUploadEntries(entries))
	}

	if len(entries) == 0 {
		statusf("No upload attempts recorded.\n")
		return nil
	}

	printTable(os.Stdout, []string{"STARTED", "STATE", "SIZE", "FILE", "DETAIL"}, uploadRows(entries))

	return nil
}

func toUploadEntries(entries []journal.Entry) []uploadEntryOutput {
	out := make([]uploadEntryOutput, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, uploadEntryOutput{
			ID:          e.ID,
			FileName:    e.FileName,
			Size:        e.Size,
			State:       e.State.String(),
			FailedStage: e.FailedStage,
			Error:       e.Error,
			StorageID:   e.StorageID,
			ItemID:      e.ItemID,
			Orphaned:    e.Orphaned(),
			StartedAt:   e.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	return out
}

// uploadRows renders the DETAIL column as the item for published attempts,
// the failed stage and storage for orphans, and the error otherwise.
func uploadRows(entries []journal.Entry) [][]string {
	rows := make([][]string, 0, len(entries))

	for i := range entries {
		e := &entries[i]

		state := e.State.String()
		if e.FailedStage != "" {
			state = "failed@" + e.FailedStage
		}

		var detail string

		switch {
		case e.ItemID != "":
			detail = e.ItemID
		case e.Orphaned():
			detail = fmt.Sprintf("orphan %s", e.StorageID)
		default:
			detail = e.Error
		}

		rows = append(rows, []string{formatTime(e.StartedAt), state, formatSize(e.Size), e.FileName, detail})
	}

	return rows
}
