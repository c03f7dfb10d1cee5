// Package progress provides progress reporting for CLI transfers.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Reporter is the interface for reporting transfer progress.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
}

// New returns a bar reporter when stderr is a terminal and a no-op reporter
// otherwise, so piped output stays clean.
func New() Reporter {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return &barReporter{}
	}
	return NoOp{}
}

// barReporter renders a byte-count progress bar on stderr. A total of -1
// renders a spinner for streams of unknown length.
type barReporter struct {
	bar *progressbar.ProgressBar
}

func (p *barReporter) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *barReporter) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

func (p *barReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// NoOp is a Reporter that does nothing.
type NoOp struct{}

func (NoOp) Start(total int64, description string) {}
func (NoOp) Update(current int64)                  {}
func (NoOp) Finish()                               {}

// Reader wraps an io.Reader and reports the cumulative bytes read.
type Reader struct {
	reader   io.Reader
	reporter Reporter
	current  int64
}

// NewReader creates a progress-reporting reader.
func NewReader(r io.Reader, reporter Reporter) *Reader {
	return &Reader{reader: r, reporter: reporter}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}
