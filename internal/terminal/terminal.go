// Package terminal renders a widget as coloured lines on a terminal.
package terminal

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"review-insights-go/internal/widget"
)

// Container prints each widget change to w. It implements widget.Container
// and widget.Host for its single id.
type Container struct {
	id string

	mu  sync.Mutex
	w   io.Writer
	ok  *color.Color
	bad *color.Color
	mid *color.Color
	dim *color.Color
}

func New(id string, w io.Writer, noColor bool) *Container {
	c := &Container{
		id:  id,
		w:   w,
		ok:  color.New(color.FgGreen, color.Bold),
		bad: color.New(color.FgRed, color.Bold),
		mid: color.New(color.FgYellow),
		dim: color.New(color.Faint),
	}
	if noColor {
		for _, col := range []*color.Color{c.ok, c.bad, c.mid, c.dim} {
			col.DisableColor()
		}
	}
	return c
}

func (c *Container) Lookup(id string) (widget.Container, bool) {
	if id != c.id {
		return nil, false
	}
	return c, true
}

func (c *Container) Mount(l widget.Layout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dim.Fprintf(c.w, "== Analytics Dashboard [%s] (%s theme)\n", l.ContainerID, l.Theme)
}

func (c *Container) SetStatus(s widget.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch s {
	case widget.Live:
		c.ok.Fprintf(c.w, "● %s\n", s)
	case widget.Error:
		c.bad.Fprintf(c.w, "● %s\n", s)
	case widget.Loading:
		c.mid.Fprintf(c.w, "○ %s\n", s)
	default:
		c.dim.Fprintf(c.w, "○ %s\n", s)
	}
}

func (c *Container) Show(m widget.Metrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "  Total Reviews: %d  ", m.Total)
	c.ok.Fprintf(c.w, "Positive: %d%%  ", m.PositivePct)
	c.mid.Fprintf(c.w, "Neutral: %d%%  ", m.NeutralPct)
	c.bad.Fprintf(c.w, "Negative: %d%%\n", m.NegativePct)
	if len(m.PositiveThemes) > 0 {
		fmt.Fprintf(c.w, "  Positive Themes: %s\n", strings.Join(m.PositiveThemes, ", "))
	}
	if len(m.NegativeThemes) > 0 {
		fmt.Fprintf(c.w, "  Areas for Improvement: %s\n", strings.Join(m.NegativeThemes, ", "))
	}
}

// SetChart is a no-op; charts are not drawn in the terminal.
func (c *Container) SetChart(widget.ChartKind, template.HTML) {}

func (c *Container) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dim.Fprintln(c.w, "== widget stopped")
}
