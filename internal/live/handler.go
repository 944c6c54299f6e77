package live

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"review-insights-go/internal/logger"
	"review-insights-go/internal/metrics"
)

const (
	wsPingInterval = 15 * time.Second
	wsPongWait     = 45 * time.Second
	wsWriteWait    = 10 * time.Second
	wsMaxRead      = 4096
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>InstaReview Analytics</title>
</head>
<body>
<div id="{{.ID}}">{{.Fragment}}</div>
<script>
(function () {
  var id = {{.ID}};
  var box = document.getElementById(id);
  var el = function (s) { return box.querySelector('#' + s); };
  var tags = function (list, cls) {
    return (list || []).map(function (t) {
      var s = document.createElement('span');
      s.className = cls; s.textContent = t; return s.outerHTML;
    }).join('');
  };
  var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
  var ws = new WebSocket(proto + location.host + '/ws?container=' + encodeURIComponent(id));
  ws.onmessage = function (ev) {
    var m = JSON.parse(ev.data), p = m.payload || {};
    switch (m.type) {
    case 'mount': box.innerHTML = p.html; break;
    case 'clear': box.innerHTML = ''; break;
    case 'status':
      if (el('ir-status-text')) el('ir-status-text').textContent = p.status;
      if (el('ir-indicator')) el('ir-indicator').classList.toggle('error', p.error);
      break;
    case 'metrics':
      if (!el('ir-total')) break;
      el('ir-total').textContent = p.total;
      el('ir-positive').textContent = p.positivePct + '%';
      el('ir-neutral').textContent = p.neutralPct + '%';
      el('ir-negative').textContent = p.negativePct + '%';
      el('ir-positive-themes').innerHTML = tags(p.positiveThemes, 'ir-theme-tag');
      el('ir-negative-themes').innerHTML = tags(p.negativeThemes, 'ir-theme-tag negative');
      break;
    case 'chart':
      var c = el('ir-' + p.kind + '-chart');
      if (c) c.innerHTML = p.markup;
      break;
    }
  };
})();
</script>
</body>
</html>
`))

type Handler struct {
	host     *Host
	hub      *Hub
	log      *logger.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func NewHandler(host *Host, hub *Hub, log *logger.Logger, m *metrics.Metrics) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handler{
		host:    host,
		hub:     hub,
		log:     log.Component("live"),
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 8192,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /widget/{id}", h.servePage)
	h.mux.HandleFunc("GET /ws", h.serveWS)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) servePage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	c, ok := h.host.Get(id)
	if !ok {
		http.Error(w, "unknown container", http.StatusNotFound)
		return
	}
	frag, err := c.Fragment()
	if err != nil {
		h.log.WithRequest(r).WithError(err).Error("render widget failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, struct {
		ID       string
		Fragment template.HTML
	}{id, template.HTML(frag)}); err != nil {
		h.log.WithRequest(r).WithError(err).Error("write page failed")
	}
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("container")
	c, ok := h.host.Get(id)
	if !ok {
		http.Error(w, "unknown container", http.StatusNotFound)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithRequest(r).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Subscribe(id)
	defer cancel()
	h.metrics.ViewerConnected()
	defer h.metrics.ViewerDisconnected()
	log := h.log.WithRequest(r).WithField("container", id)
	log.Info("viewer connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(wsMaxRead)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(msg Message) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}
	if err := write(c.State()); err != nil {
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-done:
			log.Info("viewer disconnected")
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := write(msg); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
