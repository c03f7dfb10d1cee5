package cloud

import (
	"bufio"
	"context"
	"io"
)

// FetchFunc opens the decoded content of one named object.
type FetchFunc func(ctx context.Context, name string) (io.ReadCloser, error)

// RecordIterator lazily yields line-delimited UTF-8 records across a list of
// remote objects. Objects are fetched one at a time, only when the previous
// one is exhausted.
//
// Usage follows the bufio.Scanner pattern:
//
//	for it.Next() {
//	    record := it.Record()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type RecordIterator struct {
	ctx    context.Context
	names  []string
	fetch  FetchFunc
	idx    int
	cur    io.ReadCloser
	scan   *bufio.Scanner
	record string
	err    error
	done   bool
}

// NewRecordIterator builds an iterator over the given object names. fetch is
// invoked lazily, once per object.
func NewRecordIterator(ctx context.Context, names []string, fetch FetchFunc) *RecordIterator {
	return &RecordIterator{
		ctx:   ctx,
		names: names,
		fetch: fetch,
	}
}

// Next advances to the next record. It returns false at the end of the last
// object or on the first error; Err distinguishes the two.
func (it *RecordIterator) Next() bool {
	if it.done {
		return false
	}

	for {
		if it.scan != nil {
			if it.scan.Scan() {
				it.record = it.scan.Text()
				return true
			}
			if err := it.scan.Err(); err != nil {
				it.fail(err)
				return false
			}
			// current object exhausted
			if err := it.cur.Close(); err != nil {
				it.fail(err)
				return false
			}
			it.cur = nil
			it.scan = nil
		}

		if it.idx >= len(it.names) {
			it.done = true
			return false
		}
		if err := it.ctx.Err(); err != nil {
			it.fail(err)
			return false
		}

		rc, err := it.fetch(it.ctx, it.names[it.idx])
		it.idx++
		if err != nil {
			it.fail(err)
			return false
		}
		it.cur = rc
		it.scan = bufio.NewScanner(rc)
		it.scan.Buffer(make([]byte, 64*1024), 16*1024*1024)
	}
}

// Record returns the record produced by the last successful Next.
func (it *RecordIterator) Record() string {
	return it.record
}

// Err returns the first error encountered, if any.
func (it *RecordIterator) Err() error {
	return it.err
}

// Close releases the currently open object stream, if any. It is safe to
// call at any point, including after exhaustion.
func (it *RecordIterator) Close() error {
	it.done = true
	if it.cur != nil {
		err := it.cur.Close()
		it.cur = nil
		it.scan = nil
		return err
	}
	return nil
}

func (it *RecordIterator) fail(err error) {
	it.err = err
	it.done = true
	if it.cur != nil {
		it.cur.Close()
		it.cur = nil
		it.scan = nil
	}
}
