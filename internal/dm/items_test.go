package dm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createItemDoc mirrors the request document for CreateItem.
type createItemDoc struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			DisplayName string          `json:"displayName"`
			Extension   extensionObject `json:"extension"`
		} `json:"attributes"`
		Relationships map[string]struct {
			Data resourceIdentifier `json:"data"`
		} `json:"relationships"`
	} `json:"data"`
	Included []struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes struct {
			Name      string          `json:"name"`
			Extension extensionObject `json:"extension"`
		} `json:"attributes"`
		Relationships map[string]struct {
			Data resourceIdentifier `json:"data"`
		} `json:"relationships"`
	} `json:"included"`
}

const storageID = "urn:adsk.objects:os.object:wip.dm.prod/abc-123.rvt"

func TestCreateItem_CompositeDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/v1/projects/b.proj/items", r.URL.Path)

		var doc createItemDoc
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))

		assert.Equal(t, "items", doc.Data.Type)
		assert.Equal(t, "model.rvt", doc.Data.Attributes.DisplayName)
		assert.Equal(t, "items:autodesk.core:File", doc.Data.Attributes.Extension.Type)
		assert.Equal(t, resourceIdentifier{Type: "folders", ID: "urn:folder:plans"}, doc.Data.Relationships["parent"].Data)

		tip := doc.Data.Relationships["tip"].Data
		assert.Equal(t, "versions", tip.Type)

		if assert.Len(t, doc.Included, 1) {
			v := doc.Included[0]
			assert.Equal(t, "versions", v.Type)
			assert.Equal(t, tip.ID, v.ID, "tip must point at the included version")
			assert.Equal(t, "model.rvt", v.Attributes.Name)
			assert.Equal(t, "versions:autodesk.core:File", v.Attributes.Extension.Type)
			assert.Equal(t, resourceIdentifier{Type: "objects", ID: storageID}, v.Relationships["storage"].Data)
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"data": {"type":"items","id":"urn:item:new","attributes":{"displayName":"model.rvt",
				"extension":{"type":"items:autodesk.core:File"}},
				"relationships":{"tip":{"data":{"type":"versions","id":"urn:version:new?version=1"}}}},
			"included": [{"type":"versions","id":"urn:version:new?version=1",
				"attributes":{"name":"model.rvt","versionNumber":1},
				"relationships":{"storage":{"data":{"type":"objects","id":"` + storageID + `"}}}}]
		}`))
	}))
	defer srv.Close()

	resolver := NewTypeResolver(KindUnknown)

	item, err := newTestClient(t, srv.URL).CreateItem(context.Background(), "b.proj", CreateItemRequest{
		FolderID:  "urn:folder:plans",
		FileName:  "model.rvt",
		StorageID: storageID,
		Types:     resolver.ChildTypes("folders:autodesk.core:Folder"),
	})
	require.NoError(t, err)

	assert.Equal(t, "urn:item:new", item.ID)
	assert.Equal(t, "urn:version:new?version=1", item.TipVersionID)
	require.Len(t, item.Versions, 1)
	assert.Equal(t, 1, item.Versions[0].VersionNumber)
	assert.Equal(t, storageID, item.Versions[0].StorageID)
}

func TestCreateVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/v1/projects/b.proj/versions", r.URL.Path)

		var doc struct {
			Data struct {
				Type          string `json:"type"`
				Relationships map[string]struct {
					Data resourceIdentifier `json:"data"`
				} `json:"relationships"`
			} `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "versions", doc.Data.Type)
		assert.Equal(t, "urn:item:1", doc.Data.Relationships["item"].Data.ID)
		assert.Equal(t, storageID, doc.Data.Relationships["storage"].Data.ID)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"type":"versions","id":"urn:version:1?version=2",
			"attributes":{"name":"model.rvt","versionNumber":2},
			"relationships":{"item":{"data":{"type":"items","id":"urn:item:1"}}}}}`))
	}))
	defer srv.Close()

	v, err := newTestClient(t, srv.URL).CreateVersion(context.Background(), "b.proj", CreateVersionRequest{
		ItemID:      "urn:item:1",
		FileName:    "model.rvt",
		StorageID:   storageID,
		VersionType: "versions:autodesk.bim360:File",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v.VersionNumber)
	assert.Equal(t, "urn:item:1", v.ItemID)
}

func TestGetItemAndVersions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/v1/projects/b.proj/items/urn:item:1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"type":"items","id":"urn:item:1","attributes":{"displayName":"a.dwg"}},
			"included":[{"type":"versions","id":"v3","attributes":{"versionNumber":3}}]}`))
	})
	mux.HandleFunc("/data/v1/projects/b.proj/items/urn:item:1/versions", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"type":"versions","id":"v3","attributes":{"versionNumber":3,"storageSize":2048}},
			{"type":"versions","id":"v2","attributes":{"versionNumber":2}}]}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	item, err := client.GetItem(context.Background(), "b.proj", "urn:item:1")
	require.NoError(t, err)
	assert.Equal(t, "a.dwg", item.DisplayName)
	require.Len(t, item.Versions, 1)

	versions, err := client.ItemVersions(context.Background(), "b.proj", "urn:item:1")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, int64(2048), versions[0].StorageSize)
}
