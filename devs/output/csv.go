package output

import (
	"encoding/csv"
	"io"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/view"
)

// CSVPlugin writes observation tuples as CSV rows (t, model_path, port,
// value), one per OnValue call. Grounded on sim/bundle.go's pattern of
// writing a stable-schema artifact file as a PolicyBundle is loaded and
// saved; here the schema is the view tuple instead of a policy
// manifest.
type CSVPlugin struct {
	w         *csv.Writer
	headerDone bool
}

// NewCSVPlugin wraps an io.Writer (typically an *os.File opened by the
// CLI's --write-output flag).
func NewCSVPlugin(w io.Writer) *CSVPlugin {
	return &CSVPlugin{w: csv.NewWriter(w)}
}

func (p *CSVPlugin) OnParameter(config map[string]devs.Value) {}

func (p *CSVPlugin) OnNewObservable(name string) {}

func (p *CSVPlugin) OnValue(t view.Tuple) {
	p.writeHeaderOnce()
	_ = p.w.Write([]string{t.T.String(), t.ModelPath, t.Port, t.Value.String()})
	p.w.Flush()
}

func (p *CSVPlugin) writeHeaderOnce() {
	if p.headerDone {
		return
	}
	_ = p.w.Write([]string{"t", "model_path", "port", "value"})
	p.headerDone = true
}

func (p *CSVPlugin) OnDeleteObservable(name string) {}

func (p *CSVPlugin) Finish(tEnd devs.Time) (devs.Value, bool) {
	p.w.Flush()
	return nil, false
}

func (p *CSVPlugin) FlushByBag() bool { return true }

func (p *CSVPlugin) OnBagFlush(tuples []view.Tuple) {
	p.writeHeaderOnce()
	for _, t := range tuples {
		_ = p.w.Write([]string{t.T.String(), t.ModelPath, t.Port, t.Value.String()})
	}
	p.w.Flush()
}

var _ view.Plugin = (*CSVPlugin)(nil)
