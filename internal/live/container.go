package live

import (
	"html/template"
	"sync"

	"review-insights-go/internal/render"
	"review-insights-go/internal/widget"
)

type StatusPayload struct {
	Status string `json:"status"`
	Error  bool   `json:"error"`
}

type ChartPayload struct {
	Kind   widget.ChartKind `json:"kind"`
	Markup string           `json:"markup"`
}

type MountPayload struct {
	HTML string `json:"html"`
}

// Container keeps the last rendered state of one widget and mirrors every
// change to the hub.
type Container struct {
	id  string
	hub *Hub

	mu      sync.RWMutex
	mounted bool
	layout  widget.Layout
	status  widget.Status
	metrics widget.Metrics
	charts  map[widget.ChartKind]template.HTML
}

func newContainer(id string, hub *Hub) *Container {
	return &Container{id: id, hub: hub, charts: map[widget.ChartKind]template.HTML{}}
}

func (c *Container) ID() string { return c.id }

func (c *Container) Mount(l widget.Layout) {
	c.mu.Lock()
	c.mounted = true
	c.layout = l
	c.status = widget.Idle
	c.metrics = widget.Metrics{}
	c.charts = map[widget.ChartKind]template.HTML{}
	html, _ := c.fragmentLocked()
	c.mu.Unlock()
	c.send(TypeMount, MountPayload{HTML: html})
}

func (c *Container) SetStatus(s widget.Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
	c.send(TypeStatus, StatusPayload{Status: s.String(), Error: s == widget.Error})
}

func (c *Container) Show(m widget.Metrics) {
	c.mu.Lock()
	c.metrics = m
	c.mu.Unlock()
	c.send(TypeMetrics, m)
}

func (c *Container) SetChart(kind widget.ChartKind, markup template.HTML) {
	c.mu.Lock()
	if markup == "" {
		delete(c.charts, kind)
	} else {
		c.charts[kind] = markup
	}
	c.mu.Unlock()
	c.send(TypeChart, ChartPayload{Kind: kind, Markup: string(markup)})
}

func (c *Container) Clear() {
	c.mu.Lock()
	c.mounted = false
	c.metrics = widget.Metrics{}
	c.charts = map[widget.ChartKind]template.HTML{}
	c.mu.Unlock()
	c.send(TypeClear, nil)
}

// Fragment renders the current state, or "" when nothing is mounted.
func (c *Container) Fragment() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fragmentLocked()
}

func (c *Container) fragmentLocked() (string, error) {
	if !c.mounted {
		return "", nil
	}
	return render.WidgetFragment(render.WidgetView{
		ContainerID:    c.id,
		Theme:          c.layout.Theme,
		ShowCharts:     c.layout.ShowCharts,
		Status:         c.status.String(),
		Error:          c.status == widget.Error,
		Total:          c.metrics.Total,
		PositivePct:    c.metrics.PositivePct,
		NeutralPct:     c.metrics.NeutralPct,
		NegativePct:    c.metrics.NegativePct,
		PositiveThemes: c.metrics.PositiveThemes,
		NegativeThemes: c.metrics.NegativeThemes,
		SentimentChart: c.charts[widget.SentimentChart],
		RatingsChart:   c.charts[widget.RatingsChart],
	})
}

// State returns the message a late viewer needs to catch up.
func (c *Container) State() Message {
	html, _ := c.Fragment()
	if html == "" {
		return Message{Type: TypeClear, Container: c.id}
	}
	return Message{Type: TypeMount, Container: c.id, Payload: MountPayload{HTML: html}}
}

func (c *Container) send(typ string, payload any) {
	c.hub.Broadcast(Message{Type: typ, Container: c.id, Payload: payload})
}

// Host owns the live containers by id.
type Host struct {
	hub *Hub

	mu         sync.RWMutex
	containers map[string]*Container
}

func NewHost(hub *Hub) *Host {
	return &Host{hub: hub, containers: map[string]*Container{}}
}

// Register creates (or returns) the container with id.
func (h *Host) Register(id string) *Container {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.containers[id]; ok {
		return c
	}
	c := newContainer(id, h.hub)
	h.containers[id] = c
	return c
}

// Lookup implements widget.Host.
func (h *Host) Lookup(id string) (widget.Container, bool) {
	c, ok := h.Get(id)
	if !ok {
		return nil, false
	}
	return c, true
}

func (h *Host) Get(id string) (*Container, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.containers[id]
	return c, ok
}
