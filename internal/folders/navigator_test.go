package folders

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/apsdm-go/internal/dm"
)

// fakeTree is an in-memory folder tree keyed by folder id.
type fakeTree struct {
	top      []string
	folders  map[string]dm.Folder
	children map[string][]string
	failList map[string]error

	creates int
	nextID  int
}

func newFakeTree() *fakeTree {
	return &fakeTree{
		folders:  map[string]dm.Folder{},
		children: map[string][]string{},
		failList: map[string]error{},
	}
}

func (t *fakeTree) add(parentID, id, name, ext string) {
	t.folders[id] = dm.Folder{ID: id, Name: name, DisplayName: name, ParentID: parentID, ExtensionType: ext}

	if parentID == "" {
		t.top = append(t.top, id)
		return
	}

	t.children[parentID] = append(t.children[parentID], id)
}

func (t *fakeTree) TopFolders(_ context.Context, _, _ string) ([]dm.Folder, error) {
	out := make([]dm.Folder, 0, len(t.top))
	for _, id := range t.top {
		out = append(out, t.folders[id])
	}

	return out, nil
}

func (t *fakeTree) GetFolder(_ context.Context, _, folderID string) (*dm.Folder, error) {
	f, ok := t.folders[folderID]
	if !ok {
		return nil, dm.ErrNotFound
	}

	return &f, nil
}

func (t *fakeTree) Subfolders(_ context.Context, _, folderID string) ([]dm.Folder, error) {
	if err := t.failList[folderID]; err != nil {
		return nil, err
	}

	var out []dm.Folder
	for _, id := range t.children[folderID] {
		out = append(out, t.folders[id])
	}

	return out, nil
}

func (t *fakeTree) CreateFolder(_ context.Context, _ string, req dm.CreateFolderRequest) (*dm.Folder, error) {
	t.creates++
	t.nextID++

	id := fmt.Sprintf("created-%d", t.nextID)
	t.add(req.ParentID, id, req.Name, req.ExtensionType)

	f := t.folders[id]

	return &f, nil
}

const bimFolder = "folders:autodesk.bim360:Folder"

// threeTops builds:
//
//	plans/{arch, struct}
//	specs/{electrical}
//	shared/{archive/{2023}}
func threeTops() *fakeTree {
	tr := newFakeTree()
	tr.add("", "plans", "Plans", bimFolder)
	tr.add("", "specs", "Specs", bimFolder)
	tr.add("", "shared", "Shared", bimFolder)
	tr.add("plans", "arch", "Architectural", bimFolder)
	tr.add("plans", "struct", "Structural", bimFolder)
	tr.add("specs", "elec", "Electrical", bimFolder)
	tr.add("shared", "archive", "Archive", bimFolder)
	tr.add("archive", "y2023", "2023", bimFolder)

	return tr
}

func ids(folders []dm.Folder) []string {
	out := make([]string, 0, len(folders))
	for i := range folders {
		out = append(out, folders[i].ID)
	}

	return out
}

func newTestNavigator(api API) *Navigator {
	return NewNavigator(api, dm.NewTypeResolver(dm.KindUnknown), nil)
}

func TestListTopFolders(t *testing.T) {
	top, err := newTestNavigator(threeTops()).ListTopFolders(context.Background(), "hub", "proj")
	require.NoError(t, err)
	assert.Equal(t, []string{"plans", "specs", "shared"}, ids(top))
}

func TestListAllFolders_DepthFirst(t *testing.T) {
	l, err := newTestNavigator(threeTops()).ListAllFolders(context.Background(), "hub", "proj", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"plans", "arch", "struct", "specs", "elec", "shared", "archive", "y2023"}, ids(l.Folders))
	assert.False(t, l.Partial())
}

func TestListAllFolders_FromRoot(t *testing.T) {
	l, err := newTestNavigator(threeTops()).ListAllFolders(context.Background(), "hub", "proj", "shared")
	require.NoError(t, err)
	assert.Equal(t, []string{"archive", "y2023"}, ids(l.Folders))
}

func TestListAllFolders_PartialFailure(t *testing.T) {
	tr := threeTops()
	denied := fmt.Errorf("listing: %w", dm.ErrForbidden)
	tr.failList["specs"] = denied

	l, err := newTestNavigator(tr).ListAllFolders(context.Background(), "hub", "proj", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"plans", "arch", "struct", "specs", "shared", "archive", "y2023"}, ids(l.Folders))
	require.Len(t, l.Warnings, 1)
	assert.Equal(t, "specs", l.Warnings[0].FolderID)
	assert.ErrorIs(t, l.Warnings[0], dm.ErrForbidden)
	assert.True(t, l.Partial())
}

func TestListAllFolders_RootFailureIsError(t *testing.T) {
	tr := threeTops()
	tr.failList["shared"] = errors.New("boom")

	_, err := newTestNavigator(tr).ListAllFolders(context.Background(), "hub", "proj", "shared")
	assert.Error(t, err)
}

func TestListAllFolders_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestNavigator(threeTops()).ListAllFolders(ctx, "hub", "proj", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindByName(t *testing.T) {
	nav := newTestNavigator(threeTops())
	ctx := context.Background()

	f, err := nav.FindByName(ctx, "hub", "proj", "2023", "")
	require.NoError(t, err)
	assert.Equal(t, "y2023", f.ID)

	f, err = nav.FindByName(ctx, "hub", "proj", "Structural", "plans")
	require.NoError(t, err)
	assert.Equal(t, "struct", f.ID)

	_, err = nav.FindByName(ctx, "hub", "proj", "Missing", "")
	assert.ErrorIs(t, err, dm.ErrNotFound)
}

func TestFindByName_DisplayNameAndNormalization(t *testing.T) {
	tr := newFakeTree()
	tr.folders["a"] = dm.Folder{ID: "a", Name: "internal-a", DisplayName: "Café"}
	tr.top = []string{"a"}

	f, err := newTestNavigator(tr).FindByName(context.Background(), "hub", "proj", "Cafe\u0301", "")
	require.NoError(t, err)
	assert.Equal(t, "a", f.ID)
}

func TestFindByName_FirstMatchWins(t *testing.T) {
	tr := threeTops()
	tr.add("plans", "dup1", "Archive", bimFolder)

	f, err := newTestNavigator(tr).FindByName(context.Background(), "hub", "proj", "Archive", "")
	require.NoError(t, err)
	assert.Equal(t, "dup1", f.ID, "plans is traversed before shared")
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	tr := threeTops()
	nav := newTestNavigator(tr)
	ctx := context.Background()

	first, created, err := nav.GetOrCreate(ctx, "proj", "plans", "MEP")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, tr.creates)

	second, created, err := nav.GetOrCreate(ctx, "proj", "plans", "MEP")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, tr.creates, "second call must not create")
}

func TestGetOrCreate_ImmediateChildrenOnly(t *testing.T) {
	tr := threeTops()

	f, created, err := newTestNavigator(tr).GetOrCreate(context.Background(), "proj", "shared", "2023")
	require.NoError(t, err)
	assert.True(t, created, "a deeper 2023 does not count")
	assert.NotEqual(t, "y2023", f.ID)
}

func TestGetOrCreate_InheritsParentKind(t *testing.T) {
	tr := newFakeTree()
	tr.add("", "core-root", "Root", "folders:autodesk.core:Folder")
	tr.add("", "plain-root", "Plain", "")

	nav := newTestNavigator(tr)

	f, _, err := nav.GetOrCreate(context.Background(), "proj", "core-root", "child")
	require.NoError(t, err)
	assert.Equal(t, "folders:autodesk.core:Folder", f.ExtensionType)

	f, _, err = nav.GetOrCreate(context.Background(), "proj", "plain-root", "child")
	require.NoError(t, err)
	assert.Equal(t, bimFolder, f.ExtensionType)
}

func TestGetOrCreate_Errors(t *testing.T) {
	tr := threeTops()
	tr.failList["plans"] = errors.New("boom")
	nav := newTestNavigator(tr)

	_, _, err := nav.GetOrCreate(context.Background(), "proj", "plans", "x")
	assert.Error(t, err)

	_, _, err = nav.GetOrCreate(context.Background(), "proj", "specs", " ")
	assert.Error(t, err)

	_, _, err = nav.GetOrCreate(context.Background(), "proj", "nope", "x")
	assert.ErrorIs(t, err, dm.ErrNotFound)
	assert.Equal(t, 0, tr.creates)
}

func TestEnsurePath(t *testing.T) {
	tr := threeTops()
	nav := newTestNavigator(tr)

	f, err := nav.EnsurePath(context.Background(), "proj", "shared", "Archive/2024/Q1")
	require.NoError(t, err)
	assert.Equal(t, "Q1", f.Name)
	assert.Equal(t, 2, tr.creates, "archive already exists")

	root, err := nav.EnsurePath(context.Background(), "proj", "shared", "")
	require.NoError(t, err)
	assert.Equal(t, "shared", root.ID)
}
