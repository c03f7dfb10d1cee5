// Package cloud defines the common contract implemented by every storage
// provider variant (internal/external × S3/Azure), together with the error
// taxonomy of the storage layer.
package cloud

import (
	"context"
	"io"
)

// RecordFormat names the text format of partitioned record files. It only
// affects the file extension; record content is opaque to this layer.
type RecordFormat string

// Common record formats.
const (
	FormatCSV  RecordFormat = "csv"
	FormatJSON RecordFormat = "json"
)

// StageStorage is the common contract of all four provider variants.
//
// Upload and download streams are scoped resources: callers must close them
// on every exit path. For uploads, Close is the single commit point; nothing
// is written remotely until it returns. Instances assume a single goroutine
// per instance for everything except ProcessedCount, which is atomic.
type StageStorage interface {
	// UploadStream opens a buffer-then-commit write stream for the object
	// dir/name (or name when dir is empty). Bytes are optionally
	// gzip-compressed, then encrypted under a fresh per-object envelope, and
	// committed to the remote object when the stream is closed.
	UploadStream(ctx context.Context, name, dir string, compress bool) (io.WriteCloser, error)

	// UploadPartitioned writes each partition to its own object named
	// "{partitionIndex}.{format}[.gz]" under dir (or a random 10-character
	// directory when dir is empty), one record per line. Partitions are
	// processed in parallel with no shared state; the returned
	// "{dir}/{fileName}" paths are in no particular order.
	UploadPartitioned(ctx context.Context, partitions [][]string, format RecordFormat, dir string, compress bool) ([]string, error)

	// DownloadStream opens a read stream for one object: raw bytes, then
	// decryption when the object carries an encryption envelope, then
	// gzip decompression when compress is set.
	DownloadStream(ctx context.Context, name string, compress bool) (io.ReadCloser, error)

	// DownloadRecords returns a lazy iterator over the line-delimited UTF-8
	// records of every object on the stage (or under subDir). Each object is
	// fetched through the resilient download controller.
	DownloadRecords(ctx context.Context, format RecordFormat, compress bool, subDir string) (*RecordIterator, error)

	// ListFiles enumerates object names relative to the stage prefix.
	// Internal stages answer from stage metadata; external stages enumerate
	// the remote prefix.
	ListFiles(ctx context.Context, subDir string) ([]string, error)

	// DeleteFile removes one object.
	DeleteFile(ctx context.Context, name string) error

	// DeleteFiles removes many objects, using a native batch call when the
	// provider has one and looping single deletes otherwise.
	DeleteFiles(ctx context.Context, names []string) error

	// FileExists reports whether the named object exists.
	FileExists(ctx context.Context, name string) (bool, error)

	// ProcessedCount reports how many objects this instance has successfully
	// downloaded through the resilient controller. Safe for concurrent reads.
	ProcessedCount() int64
}
