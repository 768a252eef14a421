package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/apsdm-go/internal/dm"
	"github.com/tonimelisma/apsdm-go/internal/folders"
)

func newHubsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hubs",
		Short: "List accessible hubs",
		Args:  cobra.NoArgs,
		RunE:  runHubs,
	}
}

func newProjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects in a hub",
		Args:  cobra.NoArgs,
		RunE:  runProjects,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the selected project and its root folder",
		Args:  cobra.NoArgs,
		RunE:  runProjectShow,
	})

	return cmd
}

func newFoldersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "Navigate a project's folder tree",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "top",
		Short: "List the project's top folders",
		Args:  cobra.NoArgs,
		RunE:  runFoldersTop,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tree [root-folder-id]",
		Short: "List every folder recursively",
		Long: `List every folder below root-folder-id, or below the top folders when no
root is given. Subtrees that cannot be listed are reported as warnings and
skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runFoldersTree,
	})

	findCmd := &cobra.Command{
		Use:   "find <name>",
		Short: "Find the first folder with a name",
		Args:  cobra.ExactArgs(1),
		RunE:  runFoldersFind,
	}
	findCmd.Flags().String("root", "", "search below this folder instead of the top folders")
	cmd.AddCommand(findCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a folder path below --folder, reusing existing folders",
		Args:  cobra.ExactArgs(1),
		RunE:  runFoldersMkdir,
	})

	return cmd
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List the contents of a folder (default --folder)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <item-id>",
		Short: "Show an item and list its versions",
		Args:  cobra.ExactArgs(1),
		RunE:  runVersions,
	}
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <display-name>",
		Short: "Find items by display name in --folder and its subfolders",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
}

// browseSession builds a session and logger for a browse command.
func browseSession(ctx context.Context) (*Session, *slog.Logger, error) {
	logger := buildLogger()

	s, err := NewSession(ctx, resolvedCfg, flagAuthMode, logger)
	if err != nil {
		return nil, nil, err
	}

	return s, logger, nil
}

func runHubs(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
	if err != nil {
		return err
	}

	hubs, err := s.Client.Hubs(ctx)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(hubs)
	}

	rows := make([][]string, 0, len(hubs))
	for _, h := range hubs {
		rows = append(rows, []string{h.ID, h.Region, dm.ParseKind(h.ExtensionType).String(), h.Name})
	}

	printTable(os.Stdout, []string{"ID", "REGION", "KIND", "NAME"}, rows)

	return nil
}

func runProjects(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
	if err != nil {
		return err
	}

	hubID, err := s.hubID()
	if err != nil {
		return err
	}

	projects, err := s.Client.Projects(ctx, hubID)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(projects)
	}

	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{p.ID, p.RootFolderID, p.Name})
	}

	printTable(os.Stdout, []string{"ID", "ROOT FOLDER", "NAME"}, rows)

	return nil
}

func runProjectShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
	if err != nil {
		return err
	}

	hubID, err := s.hubID()
	if err != nil {
		return err
	}

	projectID, err := s.projectID()
	if err != nil {
		return err
	}

	p, err := s.Client.Project(ctx, hubID, projectID)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(p)
	}

	fmt.Printf("Name:        %s\n", p.Name)
	fmt.Printf("ID:          %s\n", p.ID)
	fmt.Printf("Hub:         %s\n", p.HubID)
	fmt.Printf("Root folder: %s\n", p.RootFolderID)
	fmt.Printf("Kind:        %s\n", dm.ParseKind(p.ExtensionType))

	return nil
}

func runFoldersTop(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
	if err != nil {
		return err
	}

	hubID, projectID, err := hubAndProject(s)
	if err != nil {
		return err
	}

	top, err := s.Navigator().ListTopFolders(ctx, hubID, projectID)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(top)
	}

	printFolders(top)

	return nil
}

// treeOutput is the JSON schema for `folders tree --json`.
type treeOutput struct {
	Folders  []dm.Folder `json:"folders"`
	Warnings []string    `json:"warnings,omitempty"`
}

func runFoldersTree(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
	if err != nil {
		return err
	}

	hubID, projectID, err := hubAndProject(s)
	if err != nil {
		return err
	}

	rootID := ""
	if len(args) == 1 {
		rootID = args[0]
	}

	listing, err := s.Navigator().ListAllFolders(ctx, hubID, projectID, rootID)
	if err != nil {
		return err
	}

	if flagJSON {
		out := treeOutput{Folders: listing.Folders}
		for _, w := range listing.Warnings {
			out.Warnings = append(out.Warnings, w.Error())
		}

		return printJSON(out)
	}

	depths := folderDepths(listing.Folders)
	for i := range listing.Folders {
		f := &listing.Folders[i]
		fmt.Printf("%s%s  (%s)\n", strings.Repeat("  ", depths[i]), folderLabel(f), f.ID)
	}

	reportWarnings(listing.Warnings)

	return nil
}

func runFoldersFind(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
	if err != nil {
		return err
	}

	hubID, projectID, err := hubAndProject(s)
	if err != nil {
		return err
	}

	root, err := cmd.Flags().GetString("root")
	if err != nil {
		return err
	}

	f, err := s.Navigator().FindByName(ctx, hubID, projectID, args[0], root)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(f)
	}

	fmt.Println(f.ID)

	return nil
}

func runFoldersMkdir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, logger, err := browseSession(ctx)
	if err != nil {
		return err
	}

	projectID, err := s.projectID()
	if err != nil {
		return err
	}

	parentID, err := s.folderID()
	if err != nil {
		return err
	}

	f, err := s.Navigator().EnsurePath(ctx, projectID, parentID, args[0])
	if err != nil {
		return err
	}

	logger.Info("folder path ensured", slog.String("path", args[0]), slog.String("folder_id", f.ID))

	if flagJSON {
		return printJSON(f)
	}

	fmt.Println(f.ID)

	return nil
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
	if err != nil {
		return err
	}

	projectID, err := s.projectID()
	if err != nil {
		return err
	}

	folderID := ""
	if len(args) == 1 {
		folderID = args[0]
	} else if folderID, err = s.folderID(); err != nil {
		return err
	}

	contents, err := s.Client.FolderContents(ctx, projectID, folderID)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(contents)
	}

	rows := make([][]string, 0, len(contents.Folders)+len(contents.Items))
	for i := range contents.Folders {
		f := &contents.Folders[i]
		rows = append(rows, []string{"folder", formatTime(f.ModifiedAt), folderLabel(f) + "/", f.ID})
	}

	for _, it := range contents.Items {
		rows = append(rows, []string{"item", formatTime(it.ModifiedAt), it.DisplayName, it.ID})
	}

	printTable(os.Stdout, []string{"TYPE", "MODIFIED", "NAME", "ID"}, rows)

	return nil
}

func runVersions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
	if err != nil {
		return err
	}

	projectID, err := s.projectID()
	if err != nil {
		return err
	}

	versions, err := s.Client.ItemVersions(ctx, projectID, args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(versions)
	}

	item, err := s.Client.GetItem(ctx, projectID, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s  (tip %s)\n\n", item.DisplayName, item.TipVersionID)

	rows := make([][]string, 0, len(versions))
	for _, v := range versions {
		rows = append(rows, []string{
			strconv.Itoa(v.VersionNumber),
			formatSize(v.StorageSize),
			formatTime(v.CreatedAt),
			v.DisplayName,
			v.ID,
		})
	}

	printTable(os.Stdout, []string{"VER", "SIZE", "CREATED", "NAME", "ID"}, rows)

	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	s, _, err := browseSession(ctx)
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

	items, err := s.Client.SearchFolder(ctx, projectID, folderID, args[0])
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(items)
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.DisplayName, it.ParentID, it.ID})
	}

	printTable(os.Stdout, []string{"NAME", "FOLDER", "ID"}, rows)

	return nil
}

func hubAndProject(s *Session) (string, string, error) {
	hubID, err := s.hubID()
	if err != nil {
		return "", "", err
	}

	projectID, err := s.projectID()
	if err != nil {
		return "", "", err
	}

	return hubID, projectID, nil
}

func printFolders(list []dm.Folder) {
	rows := make([][]string, 0, len(list))
	for i := range list {
		f := &list[i]
		rows = append(rows, []string{f.Kind().String(), folderLabel(f), f.ID})
	}

	printTable(os.Stdout, []string{"KIND", "NAME", "ID"}, rows)
}

// folderLabel prefers the display name, which is what the web UI shows.
func folderLabel(f *dm.Folder) string {
	if f.DisplayName != "" {
		return f.DisplayName
	}

	return f.Name
}

// folderDepths returns the nesting depth of each folder in a pre-order
// listing. Folders whose parent is not in the listing are roots.
func folderDepths(list []dm.Folder) []int {
	depthByID := make(map[string]int, len(list))
	depths := make([]int, len(list))

	for i, f := range list {
		d := 0
		if pd, ok := depthByID[f.ParentID]; ok {
			d = pd + 1
		}

		depthByID[f.ID] = d
		depths[i] = d
	}

	return depths
}

// reportWarnings prints skipped subtrees to stderr. Warnings are shown even
// with --quiet because they mean the output above is incomplete.
func reportWarnings(warnings []folders.TraversalWarning) {
	if len(warnings) == 0 {
		return
	}

	fmt.Fprintf(os.Stderr, "\nListing is partial, %d subtree(s) skipped:\n", len(warnings))

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "  %s\n", w.Error())
	}
}
