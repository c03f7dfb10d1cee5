package transfer

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stagelink/stagelink/internal/cloud"
	"github.com/stagelink/stagelink/internal/constants"
	encryption "github.com/stagelink/stagelink/internal/crypto"
)

// OpenUploadFunc matches the providers' UploadStream method.
type OpenUploadFunc func(ctx context.Context, name, dir string, compress bool) (io.WriteCloser, error)

// PartitionFileName derives the deterministic object name of one partition:
// "{partitionIndex}.{format}", plus ".gz" when compressed.
func PartitionFileName(index int, format cloud.RecordFormat, compress bool) string {
	name := fmt.Sprintf("%d.%s", index, format)
	if compress {
		name += ".gz"
	}
	return name
}

// UploadPartitions writes each partition to its own object, one goroutine
// per partition with no shared mutable state. Each record is written as its
// UTF-8 bytes followed by a newline. When dir is empty a random
// 10-character alphanumeric directory name is chosen.
//
// The returned "{dir}/{fileName}" paths cover all partitions; their order is
// not guaranteed to match partition order.
func UploadPartitions(ctx context.Context, open OpenUploadFunc, partitions [][]string, format cloud.RecordFormat, dir string, compress bool) ([]string, error) {
	if dir == "" {
		var err error
		dir, err = encryption.RandomAlphanumeric(constants.RandomStageDirLength)
		if err != nil {
			return nil, err
		}
	}

	results := make([]string, len(partitions))
	errs := make([]error, len(partitions))

	var wg sync.WaitGroup
	for i, records := range partitions {
		wg.Add(1)
		go func(i int, records []string) {
			defer wg.Done()
			name := PartitionFileName(i, format, compress)
			if err := writePartition(ctx, open, name, dir, compress, records); err != nil {
				errs[i] = fmt.Errorf("partition %d: %w", i, err)
				return
			}
			results[i] = dir + "/" + name
		}(i, records)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// writePartition streams one partition's records and guarantees the stream
// is closed on every exit path. Close commits the remote write, so its error
// is the upload's error.
func writePartition(ctx context.Context, open OpenUploadFunc, name, dir string, compress bool, records []string) (err error) {
	w, err := open(ctx, name, dir, compress)
	if err != nil {
		return err
	}
	defer func() {
		cerr := w.Close()
		if err == nil {
			err = cerr
		}
	}()

	for _, record := range records {
		if _, err := io.WriteString(w, record); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
