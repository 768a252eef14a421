package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tonimelisma/apsdm-go/internal/dm"
)

func TestFolderDepths(t *testing.T) {
	list := []dm.Folder{
		{ID: "top1", ParentID: "root"},
		{ID: "a", ParentID: "top1"},
		{ID: "a1", ParentID: "a"},
		{ID: "b", ParentID: "top1"},
		{ID: "top2", ParentID: "root"},
	}

	assert.Equal(t, []int{0, 1, 2, 1, 0}, folderDepths(list))
}

func TestFolderDepths_Empty(t *testing.T) {
	assert.Empty(t, folderDepths(nil))
}

func TestFolderLabel(t *testing.T) {
	assert.Equal(t, "Project Files", folderLabel(&dm.Folder{Name: "pf-123", DisplayName: "Project Files"}))
	assert.Equal(t, "Plans", folderLabel(&dm.Folder{Name: "Plans"}))
}
