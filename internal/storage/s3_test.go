package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialmaps/internal/config"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		StorageEndpoint:        endpoint,
		StorageRegion:          "auto",
		StorageAccessKeyID:     "key",
		StorageSecretAccessKey: "secret",
		StorageBucket:          "files",
		StoragePublicURL:       "https://cdn.example.com/",
	}
}

func TestNewS3Store_RequiresCredentials(t *testing.T) {
	cfg := testConfig("")
	cfg.StorageSecretAccessKey = ""

	_, err := NewS3Store(context.Background(), cfg)
	assert.Error(t, err)
}

func TestS3Store_PublicURL(t *testing.T) {
	store, err := NewS3Store(context.Background(), testConfig(""))
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/u1/1700000000000.jpg", store.PublicURL("u1/1700000000000.jpg"))
	assert.Equal(t, "https://cdn.example.com/u1/a.png", store.PublicURL("/u1/a.png"))
}

func TestS3Store_ListAndPut(t *testing.T) {
	var putPath, putType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/files", r.URL.Path)
			assert.Equal(t, "u1/", r.URL.Query().Get("prefix"))
			assert.Equal(t, "100", r.URL.Query().Get("max-keys"))
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>files</Name><Prefix>u1/</Prefix><KeyCount>3</KeyCount><MaxKeys>100</MaxKeys><IsTruncated>false</IsTruncated>
  <Contents><Key>u1/</Key><Size>0</Size></Contents>
  <Contents><Key>u1/1.jpg</Key><Size>10</Size></Contents>
  <Contents><Key>u1/2.mp4</Key><Size>20</Size></Contents>
</ListBucketResult>`)
		case http.MethodPut:
			putPath = r.URL.Path
			putType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	store, err := NewS3Store(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	keys, err := store.List(context.Background(), "u1/", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1/1.jpg", "u1/2.mp4"}, keys)

	err = store.Put(context.Background(), "u1/3.png", []byte("png"), "image/png", "public, max-age=60")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(putPath, "/files/u1/3.png"), putPath)
	assert.Equal(t, "image/png", putType)
}
