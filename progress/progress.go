package progress

import (
	"io"
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

type Progress struct {
	progress *mpb.Progress
	out      io.Writer
}

// Bar tracks the bytes written to one peer.
type Bar struct {
	bar *mpb.Bar
}

func New() *Progress {
	return NewWithOutput(os.Stdout)
}

// NewWithOutput renders bars to w. A nil w renders nothing.
func NewWithOutput(w io.Writer) *Progress {
	return &Progress{
		progress: mpb.New(mpb.WithOutput(w), mpb.WithWidth(48)),
		out:      w,
	}
}

func (p *Progress) NewBar(n int64, text string) *Bar {
	bar := p.progress.AddBar(n,
		mpb.PrependDecorators(
			decor.Name(text, decor.WC{W: 22, C: decor.DindentRight}),
			decor.CountersKibiByte(" % .2f / % .2f", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnAbort(decor.Percentage(decor.WC{W: 5}), "failed"),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 8, C: decor.DindentRight}),
		),
	)

	return &Bar{bar: bar}
}

// Writer counts everything written through it against the bar.
func (b *Bar) Writer(w io.Writer) io.Writer {
	return b.bar.ProxyWriter(w)
}

// Abort stops the bar so Wait does not block on it.
func (b *Bar) Abort() {
	b.bar.Abort(false)
}

func (b *Bar) Completed() bool {
	return b.bar.Completed()
}

func (p *Progress) Wait() {
	p.progress.Wait()
}

func (p *Progress) Reset() {
	if p.progress != nil {
		p.progress.Wait()
	}

	p.progress = mpb.New(mpb.WithOutput(p.out), mpb.WithWidth(48))
}
