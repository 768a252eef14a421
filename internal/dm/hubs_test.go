package dm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubsAndProjects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/project/v1/hubs", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"type":"hubs","id":"b.hub","attributes":{"name":"Acme","region":"US",
			"extension":{"type":"hubs:autodesk.bim360:Account"}}}]}`))
	})
	mux.HandleFunc("/project/v1/hubs/b.hub/projects", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"type":"projects","id":"b.proj","attributes":{"name":"Tower"},
			"relationships":{"hub":{"data":{"type":"hubs","id":"b.hub"}},
			"rootFolder":{"data":{"type":"folders","id":"urn:folder:root"}}}}]}`))
	})
	mux.HandleFunc("/project/v1/hubs/b.hub/projects/b.proj", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"type":"projects","id":"b.proj","attributes":{"name":"Tower"},
			"relationships":{"rootFolder":{"data":{"type":"folders","id":"urn:folder:root"}}}}}`))
	})
	mux.HandleFunc("/project/v1/hubs/b.hub/projects/b.proj/topFolders", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[` + folderJSON + `]}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	hubs, err := client.Hubs(ctx)
	require.NoError(t, err)
	require.Len(t, hubs, 1)
	assert.Equal(t, Hub{ID: "b.hub", Name: "Acme", Region: "US", ExtensionType: "hubs:autodesk.bim360:Account"}, hubs[0])

	projects, err := client.Projects(ctx, "b.hub")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "b.hub", projects[0].HubID)
	assert.Equal(t, "urn:folder:root", projects[0].RootFolderID)

	p, err := client.Project(ctx, "b.hub", "b.proj")
	require.NoError(t, err)
	assert.Equal(t, "Tower", p.Name)

	top, err := client.TopFolders(ctx, "b.hub", "b.proj")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Plans", top[0].Name)
}

func TestTopFolders_Forbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).TopFolders(context.Background(), "b.hub", "b.proj")
	assert.ErrorIs(t, err, ErrForbidden)
}
