package progress

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type Progress struct {
	mu       sync.Mutex
	progress *mpb.Progress
	opts     []mpb.ContainerOption
}

func New(opts ...mpb.ContainerOption) *Progress {
	return &Progress{
		progress: mpb.New(opts...),
		opts:     opts,
	}
}

// NewOutput renders to w instead of stdout.
func NewOutput(w io.Writer) *Progress {
	return New(mpb.WithOutput(w))
}

func (p *Progress) NewBar(n int64, text string) *mpb.Bar {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.progress.AddBar(n,
		mpb.PrependDecorators(
			decor.Name(text, decor.WC{W: 12, C: decor.DindentRight}),
			decor.CountersKibiByte(" % .2f / % .2f", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 12, C: decor.DindentRight}),
		),
	)
}

// Track has the shape of a transfer progress hook. verb prefixes the file
// name in the bar label.
func (p *Progress) Track(verb string) func(name string, total int64) io.WriteCloser {
	return func(name string, total int64) io.WriteCloser {
		return &tracker{bar: p.NewBar(total, verb+" "+name)}
	}
}

func (p *Progress) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.progress.Wait()
}

func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.progress != nil {
		p.progress.Wait()
	}

	p.progress = mpb.New(p.opts...)
}

type tracker struct {
	bar *mpb.Bar
	n   int64
}

func (t *tracker) Write(b []byte) (int, error) {
	t.n += int64(len(b))
	t.bar.IncrBy(len(b))
	return len(b), nil
}

// Close aborts a bar that never reached its total, leaving it on screen at
// the count it stopped at. Wait does not return while such a bar is live.
func (t *tracker) Close() error {
	if !t.bar.Completed() {
		t.bar.Abort(false)
	}
	return nil
}
