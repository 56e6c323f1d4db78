package media

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestDiskStore_StoreAndRemove(t *testing.T) {
	root := t.TempDir()
	store := NewDiskStore(root, "http://cdn.local/media/")

	url, err := store.Store(context.Background(), fileHeader(t, "Clip.MP4", []byte("video-bytes")), KindVideo)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://cdn.local/media/video/"))
	assert.True(t, strings.HasSuffix(url, ".mp4"))

	path := filepath.Join(root, "video", filepath.Base(url))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))

	require.NoError(t, store.Remove(context.Background(), url))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDiskStore_RemoveForeignURL(t *testing.T) {
	store := NewDiskStore(t.TempDir(), "http://cdn.local/media")
	assert.Error(t, store.Remove(context.Background(), "http://elsewhere/x.png"))
	assert.Error(t, store.Remove(context.Background(), "http://cdn.local/media/../secret"))
}

type fakeCloudinary struct {
	uploads  []uploader.UploadParams
	destroys []uploader.DestroyParams
	fail     string
}

func (f *fakeCloudinary) Upload(_ context.Context, file interface{}, p uploader.UploadParams) (*uploader.UploadResult, error) {
	f.uploads = append(f.uploads, p)
	res := &uploader.UploadResult{
		PublicID:  p.Folder + "/abc123",
		SecureURL: "https://res.cloudinary.com/demo/" + p.ResourceType + "/upload/v1712/" + p.Folder + "/abc123.bin",
	}
	res.Error.Message = f.fail
	return res, nil
}

func (f *fakeCloudinary) Destroy(_ context.Context, p uploader.DestroyParams) (*uploader.DestroyResult, error) {
	f.destroys = append(f.destroys, p)
	return &uploader.DestroyResult{Result: "ok"}, nil
}

func TestCloudinaryStore_StoreAndRemove(t *testing.T) {
	api := &fakeCloudinary{}
	store := &CloudinaryStore{api: api, folder: "food-api"}
	ctx := context.Background()

	url, err := store.Store(ctx, fileHeader(t, "clip.mp4", []byte("video-bytes")), KindVideo)
	require.NoError(t, err)
	require.Len(t, api.uploads, 1)
	assert.Equal(t, "food-api/video", api.uploads[0].Folder)
	assert.Equal(t, "video", api.uploads[0].ResourceType)

	require.NoError(t, store.Remove(ctx, url))
	require.Len(t, api.destroys, 1)
	assert.Equal(t, "food-api/video/abc123", api.destroys[0].PublicID)
	assert.Equal(t, "video", api.destroys[0].ResourceType)
}

func TestCloudinaryStore_UploadErrorSurfaces(t *testing.T) {
	store := &CloudinaryStore{api: &fakeCloudinary{fail: "Invalid image file"}, folder: "food-api"}
	_, err := store.Store(context.Background(), fileHeader(t, "x.jpg", []byte("x")), KindImage)
	assert.ErrorContains(t, err, "Invalid image file")
}

func TestParseCloudinaryURL(t *testing.T) {
	tests := []struct {
		url          string
		resourceType string
		publicID     string
		wantErr      bool
	}{
		{"https://res.cloudinary.com/demo/image/upload/v1571218039/food-api/image/dosa.jpg", "image", "food-api/image/dosa", false},
		{"https://res.cloudinary.com/demo/video/upload/c_scale,w_500/v42/clips/intro.mp4", "video", "clips/intro", false},
		{"https://res.cloudinary.com/demo/image/upload/sample.png", "image", "sample", false},
		{"http://localhost:8080/media/video/abc.mp4", "", "", true},
		{"https://res.cloudinary.com/demo/image/upload/", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rt, id, err := parseCloudinaryURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.resourceType, rt)
			assert.Equal(t, tt.publicID, id)
		})
	}
}
