package transfer

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stagelink/stagelink/internal/cloud"
)

// memStore collects committed objects keyed by "{dir}/{name}".
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    string // name that fails to open
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (s *memStore) open(ctx context.Context, name, dir string, compress bool) (io.WriteCloser, error) {
	if name == s.fail {
		return nil, errors.New("open refused")
	}
	key := dir + "/" + name
	return NewUploadStream(nil, compress, func(body []byte) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.objects[key] = append([]byte(nil), body...)
		return nil
	})
}

// TestPartitionFileName covers the deterministic partition naming scheme.
func TestPartitionFileName(t *testing.T) {
	tests := []struct {
		index    int
		format   cloud.RecordFormat
		compress bool
		want     string
	}{
		{0, cloud.FormatCSV, false, "0.csv"},
		{3, cloud.FormatCSV, true, "3.csv.gz"},
		{12, cloud.FormatJSON, false, "12.json"},
		{7, cloud.FormatJSON, true, "7.json.gz"},
	}
	for _, tt := range tests {
		if got := PartitionFileName(tt.index, tt.format, tt.compress); got != tt.want {
			t.Errorf("PartitionFileName(%d, %s, %v) = %q, want %q", tt.index, tt.format, tt.compress, got, tt.want)
		}
	}
}

// TestUploadPartitions verifies one object per partition, newline-delimited
// records, and index-derived names under the given directory.
func TestUploadPartitions(t *testing.T) {
	store := newMemStore()
	partitions := [][]string{
		{"a,1", "b,2"},
		{"c,3"},
		{},
	}

	paths, err := UploadPartitions(context.Background(), store.open, partitions, cloud.FormatCSV, "stagedir", false)
	if err != nil {
		t.Fatalf("UploadPartitions failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("got %d paths, want 3", len(paths))
	}

	want := map[string]string{
		"stagedir/0.csv": "a,1\nb,2\n",
		"stagedir/1.csv": "c,3\n",
		"stagedir/2.csv": "",
	}
	for path, content := range want {
		got, ok := store.objects[path]
		if !ok {
			t.Errorf("object %q missing", path)
			continue
		}
		if string(got) != content {
			t.Errorf("object %q = %q, want %q", path, got, content)
		}
	}
	for _, p := range paths {
		if _, ok := want[p]; !ok {
			t.Errorf("unexpected path %q", p)
		}
	}
}

// TestUploadPartitionsRandomDir verifies an empty dir yields a shared random
// 10-character alphanumeric directory.
func TestUploadPartitionsRandomDir(t *testing.T) {
	store := newMemStore()
	partitions := [][]string{{"x"}, {"y"}}

	paths, err := UploadPartitions(context.Background(), store.open, partitions, cloud.FormatJSON, "", true)
	if err != nil {
		t.Fatalf("UploadPartitions failed: %v", err)
	}

	dir, _, ok := strings.Cut(paths[0], "/")
	if !ok {
		t.Fatalf("path %q has no directory component", paths[0])
	}
	if len(dir) != 10 {
		t.Errorf("random dir %q has length %d, want 10", dir, len(dir))
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, dir+"/") {
			t.Errorf("path %q does not share directory %q", p, dir)
		}
		if !strings.HasSuffix(p, ".json.gz") {
			t.Errorf("path %q does not carry the compressed extension", p)
		}
	}
}

// TestUploadPartitionsError verifies a failing partition surfaces as an error
// identifying the partition.
func TestUploadPartitionsError(t *testing.T) {
	store := newMemStore()
	store.fail = "1.csv"

	_, err := UploadPartitions(context.Background(), store.open, [][]string{{"a"}, {"b"}}, cloud.FormatCSV, "d", false)
	if err == nil {
		t.Fatal("UploadPartitions succeeded, want error")
	}
	if !strings.Contains(err.Error(), "partition 1") {
		t.Errorf("error %q does not name the failed partition", err)
	}
}
