package s3

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/auditlog/auditlogtest"
	"github.com/gezibash/arc-skill/internal/storage"
)

// pageSize is kept small so List and Count walk several pages.
const pageSize = 3

type listResult struct {
	XMLName               xml.Name      `xml:"ListBucketResult"`
	Name                  string        `xml:"Name"`
	Prefix                string        `xml:"Prefix"`
	KeyCount              int           `xml:"KeyCount"`
	MaxKeys               int           `xml:"MaxKeys"`
	IsTruncated           bool          `xml:"IsTruncated"`
	NextContinuationToken string        `xml:"NextContinuationToken,omitempty"`
	Contents              []listContent `xml:"Contents"`
}

type listContent struct {
	Key  string `xml:"Key"`
	Size int    `xml:"Size"`
}

// mockS3Server emulates the subset of the S3 API the backend uses.
func mockS3Server() *httptest.Server {
	store := &mockStore{objects: make(map[string][]byte)}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Path format: /bucket/key or /bucket
		parts := strings.SplitN(r.URL.Path, "/", 3)

		if len(parts) < 3 || parts[2] == "" {
			if r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2" {
				store.list(w, parts[1], r)
				return
			}
			w.WriteHeader(http.StatusOK)
			return
		}

		key := parts[2]
		switch r.Method {
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			store.put(key, data)
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			data, ok := store.get(key)
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code></Error>`))
				return
			}
			w.Write(data)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
}

type mockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *mockStore) put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

func (m *mockStore) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.objects[key]
	return d, ok
}

func (m *mockStore) list(w http.ResponseWriter, bucket string, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	after := q.Get("start-after")
	if token := q.Get("continuation-token"); token != "" {
		after = token
	}

	m.mu.Lock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) && k > after {
			keys = append(keys, k)
		}
	}
	sizes := make(map[string]int, len(keys))
	for _, k := range keys {
		sizes[k] = len(m.objects[k])
	}
	m.mu.Unlock()
	slices.Sort(keys)

	res := listResult{Name: bucket, Prefix: prefix, MaxKeys: pageSize}
	if len(keys) > pageSize {
		keys = keys[:pageSize]
		res.IsTruncated = true
		res.NextContinuationToken = keys[len(keys)-1]
	}
	for _, k := range keys {
		res.Contents = append(res.Contents, listContent{Key: k, Size: sizes[k]})
	}
	res.KeyCount = len(res.Contents)

	w.Header().Set("Content-Type", "application/xml")
	io.WriteString(w, xml.Header)
	xml.NewEncoder(w).Encode(res)
}

func newTestBackend(t *testing.T, extra map[string]string) *Backend {
	t.Helper()
	srv := mockS3Server()
	t.Cleanup(srv.Close)

	cfg := map[string]string{
		KeyBucket:          "test-bucket",
		KeyRegion:          "us-east-1",
		KeyEndpoint:        srv.URL,
		KeyForcePathStyle:  "true",
		KeyAccessKeyID:     "test",
		KeySecretAccessKey: "test",
	}
	for k, v := range extra {
		cfg[k] = v
	}
	b, err := NewFactory(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	return b.(*Backend)
}

func TestConformance(t *testing.T) {
	auditlogtest.Run(t, func(t *testing.T) auditlog.Backend { return newTestBackend(t, nil) })
}

func TestPrefix(t *testing.T) {
	b := newTestBackend(t, map[string]string{KeyPrefix: "skills/calc/"})
	rec := auditlogtest.Records(1)[0]
	if !strings.HasPrefix(b.key(rec), "skills/calc/audit/") {
		t.Fatalf("key = %q", b.key(rec))
	}
	if !strings.HasSuffix(b.key(rec), ".json") {
		t.Fatalf("key = %q", b.key(rec))
	}
}

func TestListPagesNewestFirst(t *testing.T) {
	b := newTestBackend(t, nil)
	ctx := context.Background()
	recs := auditlogtest.Records(8)
	for _, r := range recs {
		if err := b.Put(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	got, err := b.List(ctx, auditlog.QueryOptions{Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(recs) {
		t.Fatalf("len = %d, want %d", len(got), len(recs))
	}
	for i, r := range got {
		want := "rec-00" + strconv.Itoa(len(recs)-1-i)
		if r.ID != want {
			t.Errorf("got[%d] = %s, want %s", i, r.ID, want)
		}
	}

	n, err := b.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(recs) {
		t.Fatalf("Count = %d, want %d", n, len(recs))
	}
}

func TestNewFactoryMissingBucket(t *testing.T) {
	_, err := NewFactory(context.Background(), map[string]string{})
	var cfgErr *storage.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want config error", err)
	}
}

func TestNewFactoryBadPathStyle(t *testing.T) {
	_, err := NewFactory(context.Background(), map[string]string{
		KeyBucket:         "b",
		KeyForcePathStyle: "sometimes",
	})
	var cfgErr *storage.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want config error", err)
	}
}
