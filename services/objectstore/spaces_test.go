package objectstore

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpacesClientRequiresSettings(t *testing.T) {
	_, err := NewSpacesClient(SpacesConfig{Bucket: "media"})
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	c, err := NewSpacesClient(SpacesConfig{AccessKey: "a", SecretKey: "s", Bucket: "media", Region: "blr1"})
	require.NoError(t, err)
	assert.Equal(t, "https://media.blr1.digitaloceanspaces.com/videos/x.mp4", c.URL("videos/x.mp4"))

	c, err = NewSpacesClient(SpacesConfig{AccessKey: "a", SecretKey: "s", Bucket: "media", Region: "blr1", CDNURL: "https://cdn.example.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/videos/x.mp4", c.URL("videos/x.mp4"))
}

func TestUploadAndDeleteAgainstFakeEndpoint(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []string
		body     string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			b, _ := io.ReadAll(r.Body)
			body = string(b)
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			assert.Equal(t, "public-read", r.Header.Get("X-Amz-Acl"))
			w.Header().Set("ETag", `"etag"`)
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewSpacesClient(SpacesConfig{
		AccessKey: "a",
		SecretKey: "s",
		Bucket:    "media",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		PathStyle: true,
	})
	require.NoError(t, err)

	url, err := c.Upload(context.Background(), "course_image/asha/go.png", strings.NewReader("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/media/course_image/asha/go.png", url)

	require.NoError(t, c.Delete(context.Background(), "course_image/asha/go.png"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "png-bytes", body)
	assert.Equal(t, []string{
		"PUT /media/course_image/asha/go.png",
		"DELETE /media/course_image/asha/go.png",
	}, requests)
}
