package providers

import "testing"

// TestParseLocation covers the external URL grammars, the invalid bucket,
// and the internal fallback.
func TestParseLocation(t *testing.T) {
	tests := []struct {
		rawURL string
		want   Location
	}{
		{
			"s3://bucket1/some/prefix",
			Location{Kind: KindExternalS3, Bucket: "bucket1", Path: "some/prefix"},
		},
		{
			"s3a://bucket1/some/prefix",
			Location{Kind: KindExternalS3, Bucket: "bucket1", Path: "some/prefix"},
		},
		{
			"s3n://bucket1",
			Location{Kind: KindExternalS3, Bucket: "bucket1"},
		},
		{
			"s3://bucket1/",
			Location{Kind: KindExternalS3, Bucket: "bucket1"},
		},
		{
			"wasbs://container@account.blob.core.windows.net/some/path",
			Location{Kind: KindExternalBlob, Container: "container", Account: "account", Endpoint: "blob.core.windows.net", Path: "some/path"},
		},
		{
			"wasb://c@acct.endpoint.example",
			Location{Kind: KindExternalBlob, Container: "c", Account: "acct", Endpoint: "endpoint.example"},
		},

		// External schemes with broken grammar are invalid, not internal.
		{"s3://", Location{Kind: KindInvalid}},
		{"wasbs://nocontainer.endpoint/path", Location{Kind: KindInvalid}},
		{"wasbs://container@accountonly", Location{Kind: KindInvalid}},

		// Everything else is an internal stage reference.
		{"@my_stage", Location{Kind: KindInternal}},
		{"my_stage/sub/dir", Location{Kind: KindInternal}},
		{"s3.amazonaws.com/bucket", Location{Kind: KindInternal}},
		{"", Location{Kind: KindInternal}},
	}

	for _, tt := range tests {
		if got := ParseLocation(tt.rawURL); got != tt.want {
			t.Errorf("ParseLocation(%q) = %+v, want %+v", tt.rawURL, got, tt.want)
		}
	}
}
