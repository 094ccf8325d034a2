// Package output implements concrete output plug-ins against the
// devs/view.Plugin ABI (spec §4.I / §6.3): a logrus-backed console
// sink grounded on cmd/root.go's logging setup, a CSV sink grounded on
// sim/bundle.go's file-writing convention, and a WebSocket sink grounded
// on the gorilla/websocket usage found in the niceyeti-tabular example
// repo — none of the teacher's own code streams over a socket, so that
// one plug-in is built from the wider pack rather than the teacher.
package output

import (
	"github.com/sirupsen/logrus"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/view"
)

// ConsolePlugin logs each observation tuple via logrus, the way the
// teacher's cmd package logs simulation progress.
type ConsolePlugin struct {
	log *logrus.Entry
}

// NewConsolePlugin returns a ConsolePlugin logging through logger, or
// logrus.StandardLogger() if logger is nil.
func NewConsolePlugin(logger *logrus.Logger) *ConsolePlugin {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ConsolePlugin{log: logger.WithField("component", "view")}
}

func (p *ConsolePlugin) OnParameter(config map[string]devs.Value) {
	p.log.WithField("params", len(config)).Debug("view parameters bound")
}

func (p *ConsolePlugin) OnNewObservable(name string) {
	p.log.WithField("view", name).Debug("observable registered")
}

func (p *ConsolePlugin) OnValue(t view.Tuple) {
	p.log.Infof("t=%s model=%s port=%s value=%s", t.T, t.ModelPath, t.Port, t.Value.String())
}

func (p *ConsolePlugin) OnDeleteObservable(name string) {
	p.log.WithField("view", name).Debug("observable removed")
}

func (p *ConsolePlugin) Finish(tEnd devs.Time) (devs.Value, bool) {
	p.log.WithField("t_end", tEnd.String()).Info("run finished")
	return nil, false
}

func (p *ConsolePlugin) FlushByBag() bool { return false }

func (p *ConsolePlugin) OnBagFlush(tuples []view.Tuple) {
	for _, t := range tuples {
		p.OnValue(t)
	}
}

var _ view.Plugin = (*ConsolePlugin)(nil)
