package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	platformobjectstore "github.com/paperpolish/paperpolish-go/internal/platform/objectstore"
)

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"abc.zip", "0f3a.zip"} {
		if err := ValidateKey(key); err != nil {
			t.Fatalf("ValidateKey(%q)=%v", key, err)
		}
	}
	for _, key := range []string{"", "../x.zip", "a/b.zip", `a\b.zip`, ".hidden", ".."} {
		if err := ValidateKey(key); err == nil {
			t.Fatalf("ValidateKey(%q)=nil, want error", key)
		}
	}
}

func TestLocalStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if err := store.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}

	info, err := store.Put(ctx, "job.zip", strings.NewReader("payload"), 7, "application/zip")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if info.SizeBytes != 7 {
		t.Fatalf("Put() size=%d, want 7", info.SizeBytes)
	}

	rc, info, err := store.Get(ctx, "job.zip")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "payload" || info.SizeBytes != 7 {
		t.Fatalf("Get()=%q size=%d", data, info.SizeBytes)
	}

	if err := store.Delete(ctx, "job.zip"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Stat(ctx, "job.zip"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stat(deleted)=%v, want ErrNotFound", err)
	}
	if _, _, err := store.Get(ctx, "../escape.zip"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(traversal)=%v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "job.zip"); err != nil {
		t.Fatalf("Delete(missing)=%v, want nil", err)
	}
}

func TestLocalStoreShortWrite(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	if _, err := store.Put(context.Background(), "job.zip", strings.NewReader("abc"), 10, ""); err == nil {
		t.Fatalf("Put(short) succeeded")
	}
	if _, err := store.Stat(context.Background(), "job.zip"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("partial object left behind: %v", err)
	}
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = data
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestMinioStorePutAndStat(t *testing.T) {
	s3 := &fakeS3{objects: map[string][]byte{}}
	srv := httptest.NewServer(s3)
	t.Cleanup(srv.Close)

	cfg := platformobjectstore.Config{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		AccessKey:       "access",
		SecretKey:       "secret",
		Region:          "us-east-1",
		BucketArtifacts: "artifacts",
	}
	client, err := platformobjectstore.NewMinIOClient(cfg)
	if err != nil {
		t.Fatalf("NewMinIOClient: %v", err)
	}
	store, err := NewMinioStore(client, cfg)
	if err != nil {
		t.Fatalf("NewMinioStore: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Stat(ctx, "missing.zip"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Stat(missing)=%v, want ErrNotFound", err)
	}
	if _, err := store.Put(ctx, "job.zip", strings.NewReader("zipdata"), 7, "application/zip"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if got := string(s3.objects["/artifacts/job.zip"]); got != "zipdata" {
		t.Fatalf("stored object=%q", got)
	}
	info, err := store.Stat(ctx, "job.zip")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.SizeBytes != 7 {
		t.Fatalf("Stat() size=%d, want 7", info.SizeBytes)
	}
}

func TestNewMinioStoreRequiresClient(t *testing.T) {
	if _, err := NewMinioStore(nil, platformobjectstore.Config{}); err == nil {
		t.Fatalf("NewMinioStore(nil) succeeded")
	}
}
