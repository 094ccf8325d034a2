package output

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/vle-kernel/vle/devs"
	"github.com/vle-kernel/vle/devs/view"
)

// wireTuple is the JSON wire shape pushed to connected clients — plain
// fields only, since devs.Value is a closed interface sum and its
// concrete variants don't all carry json tags.
type wireTuple struct {
	T         string `json:"t"`
	ModelPath string `json:"model_path"`
	Port      string `json:"port"`
	Value     string `json:"value"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketPlugin pushes observation tuples to every connected client
// as they arrive. Grounded on niceyeti-tabular's server/server.go, which
// upgrades incoming connections with the same gorilla/websocket.Upgrader
// shape and pushes realtime updates to subscribers; unlike that server
// this plug-in has no page-template concern, only the push sink.
type WebSocketPlugin struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewWebSocketPlugin returns a plug-in with no subscribers yet; wire
// HandleWS into an http.ServeMux to accept them.
func NewWebSocketPlugin() *WebSocketPlugin {
	return &WebSocketPlugin{conns: make(map[*websocket.Conn]bool)}
}

// HandleWS upgrades r into a websocket connection and registers it as a
// subscriber until it closes.
func (p *WebSocketPlugin) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}
	p.mu.Lock()
	p.conns[conn] = true
	p.mu.Unlock()

	go func() {
		defer p.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (p *WebSocketPlugin) drop(conn *websocket.Conn) {
	p.mu.Lock()
	delete(p.conns, conn)
	p.mu.Unlock()
	conn.Close()
}

func (p *WebSocketPlugin) broadcast(t view.Tuple) {
	payload, err := json.Marshal(wireTuple{
		T:         t.T.String(),
		ModelPath: t.ModelPath,
		Port:      t.Port,
		Value:     t.Value.String(),
	})
	if err != nil {
		logrus.WithError(err).Warn("websocket plugin: marshal tuple failed")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for conn := range p.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logrus.WithError(err).Debug("websocket write failed, dropping subscriber")
			delete(p.conns, conn)
			conn.Close()
		}
	}
}

func (p *WebSocketPlugin) OnParameter(config map[string]devs.Value) {}

func (p *WebSocketPlugin) OnNewObservable(name string) {}

func (p *WebSocketPlugin) OnValue(t view.Tuple) { p.broadcast(t) }

func (p *WebSocketPlugin) OnDeleteObservable(name string) {}

func (p *WebSocketPlugin) Finish(tEnd devs.Time) (devs.Value, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for conn := range p.conns {
		conn.Close()
	}
	return nil, false
}

func (p *WebSocketPlugin) FlushByBag() bool { return false }

func (p *WebSocketPlugin) OnBagFlush(tuples []view.Tuple) {
	for _, t := range tuples {
		p.broadcast(t)
	}
}

var _ view.Plugin = (*WebSocketPlugin)(nil)
