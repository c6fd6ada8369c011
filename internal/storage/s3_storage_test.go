package storage

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// fakeS3 实现 path-style 的 PutObject、DeleteObject、ListObjectsV2 和 DeleteObjects。
type fakeS3 struct {
	mu       sync.Mutex
	bucket   string
	objects  map[string]string
	pageSize int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	rest := strings.TrimPrefix(r.URL.Path, "/"+f.bucket)
	key := strings.TrimPrefix(rest, "/")
	query := r.URL.Query()

	switch {
	case r.Method == http.MethodPut && key != "":
		f.objects[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodDelete && key != "":
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && query.Get("list-type") == "2":
		f.writeList(w, query.Get("prefix"), query.Get("continuation-token"))
	case r.Method == http.MethodPost && query.Has("delete"):
		var req struct {
			Objects []struct {
				Key string `xml:"Key"`
			} `xml:"Object"`
		}
		if err := xml.Unmarshal(body, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, obj := range req.Objects {
			delete(f.objects, obj.Key)
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"></DeleteResult>`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.String(), http.StatusNotImplemented)
	}
}

func (f *fakeS3) writeList(w http.ResponseWriter, prefix, token string) {
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) && key > token {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	truncated := len(keys) > f.pageSize
	if truncated {
		keys = keys[:f.pageSize]
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><IsTruncated>%t</IsTruncated>", f.bucket, prefix, len(keys), truncated)
	if truncated {
		fmt.Fprintf(&b, "<NextContinuationToken>%s</NextContinuationToken>", keys[len(keys)-1])
	}
	for _, key := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>1</Size></Contents>", key)
	}
	b.WriteString("</ListBucketResult>")
	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, b.String())
}

func newFakeS3Storage(t *testing.T, pageSize int) (*remoteStorage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "dealers", objects: map[string]string{}, pageSize: pageSize}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := newS3Client(s3ClientOptions{
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
		ForcePathStyle:  true,
	})
	if err != nil {
		t.Fatalf("newS3Client: %v", err)
	}
	store := newRemoteStorage(&s3Bucket{client: client, bucket: fake.bucket}, "/media/")
	var tick int64
	store.now = func() time.Time {
		tick++
		return time.Unix(0, tick)
	}
	return store, fake
}

func TestS3StorageLifecycle(t *testing.T) {
	store, fake := newFakeS3Storage(t, 2)
	ctx := context.Background()

	var keys []string
	for _, obj := range []OutfitObject{
		{DealerID: "d1", Stage: 1, Extension: "png"},
		{DealerID: "d1", Stage: 2, Extension: "png"},
		{DealerID: "d1", Stage: 3, Extension: "jpg"},
		{DealerID: "d2", Stage: 1, Extension: "png"},
	} {
		key, err := store.SaveOutfit(ctx, []byte("img"), obj)
		if err != nil {
			t.Fatalf("SaveOutfit(%+v): %v", obj, err)
		}
		keys = append(keys, key)
	}
	if keys[0] != "media/outfits/d1/stage1/1.png" {
		t.Errorf("first key = %q", keys[0])
	}
	if ct := fake.objects[keys[2]]; ct != "image/jpeg" {
		t.Errorf("content type = %q", ct)
	}

	if err := store.Delete(ctx, keys[0]); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := fake.objects[keys[0]]; ok {
		t.Error("deleted object still present")
	}

	// d1 剩余三个对象（含一个孤儿文件），分两页列出
	fake.objects["media/outfits/d1/stage4/orphan.png"] = "image/png"
	n, err := store.DeleteDealer(ctx, "d1")
	if err != nil {
		t.Fatalf("DeleteDealer: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d, want 3", n)
	}
	if len(fake.objects) != 1 {
		t.Errorf("remaining objects = %v", fake.objects)
	}
	if _, ok := fake.objects[keys[3]]; !ok {
		t.Error("other dealer's object must survive")
	}
}

func TestIsS3NotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"NotFound 类型", &types.NotFound{}, true},
		{"NoSuchKey 类型", fmt.Errorf("wrap: %w", &types.NoSuchKey{}), true},
		{"api 错误码", &smithy.GenericAPIError{Code: "NoSuchKey"}, true},
		{"404 错误码", &smithy.GenericAPIError{Code: "404"}, true},
		{"其他 api 错误", &smithy.GenericAPIError{Code: "AccessDenied"}, false},
		{"普通错误", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isS3NotFound(tt.err); got != tt.want {
				t.Errorf("isS3NotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
