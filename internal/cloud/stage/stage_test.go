package stage

import "testing"

// TestNormalizePrefix covers the prefix normalization invariant: empty stays
// empty, anything else ends with exactly one separator.
func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"a", "a/"},
		{"a/b", "a/b/"},
		{"a/b/", "a/b/"},
		{"a/b///", "a/b/"},
	}
	for _, tt := range tests {
		if got := NormalizePrefix(tt.in); got != tt.want {
			t.Errorf("NormalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestInfoBucketPrefix covers splitting Location into bucket and normalized
// prefix.
func TestInfoBucketPrefix(t *testing.T) {
	tests := []struct {
		location   string
		wantBucket string
		wantPrefix string
	}{
		{"bucket1", "bucket1", ""},
		{"bucket1/path", "bucket1", "path/"},
		{"bucket1/some/deep/prefix", "bucket1", "some/deep/prefix/"},
		{"bucket1/some/deep/prefix/", "bucket1", "some/deep/prefix/"},
		{"bucket1/", "bucket1", ""},
	}
	for _, tt := range tests {
		info := &Info{Location: tt.location}
		if got := info.Bucket(); got != tt.wantBucket {
			t.Errorf("Bucket(%q) = %q, want %q", tt.location, got, tt.wantBucket)
		}
		if got := info.Prefix(); got != tt.wantPrefix {
			t.Errorf("Prefix(%q) = %q, want %q", tt.location, got, tt.wantPrefix)
		}
	}
}
