package scope

import (
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/itohio/picolog/pkg/sample"
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	traceColor = color.RGBA{R: 255, G: 165, B: 0, A: 255} // Orange
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the plot from the widget data.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	points := r.scope.display
	sc := r.scope.scale
	total := len(r.scope.points)
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(20.0)
	marginBottom := float32(40.0)

	plot := area{
		x:  marginLeft,
		y:  marginTop,
		w:  size.Width - marginLeft - marginRight,
		h:  size.Height - marginTop - marginBottom,
		sc: sc,
	}

	r.drawGrid(plot)
	r.drawTrace(plot, points)
	r.drawSummary(plot, total, points)
}

// area maps data coordinates onto the plot rectangle.
type area struct {
	x, y, w, h float32
	sc         scale
}

func (a area) pos(p sample.Point) fyne.Position {
	span := a.sc.xMax.Sub(a.sc.xMin).Seconds()
	x := a.x + float32(p.Time.Sub(a.sc.xMin).Seconds()/span)*a.w
	y := a.y + a.h - (p.Volts-a.sc.yMin)/(a.sc.yMax-a.sc.yMin)*a.h
	return fyne.NewPos(x, y)
}

// drawGrid draws horizontal voltage and vertical time divisions.
func (r *scopeRenderer) drawGrid(a area) {
	numHLines := 8
	for i := range numHLines + 1 {
		y := a.y + float32(i)*a.h/float32(numHLines)
		r.line(fyne.NewPos(a.x, y), fyne.NewPos(a.x+a.w, y), gridColor, 1)

		value := a.sc.yMax - float32(i)*(a.sc.yMax-a.sc.yMin)/float32(numHLines)
		r.text(formatVoltage(value), fyne.NewPos(a.x-5, y-6), fyne.TextAlignTrailing)
	}

	numVLines := 10
	span := a.sc.xMax.Sub(a.sc.xMin)
	for i := range numVLines + 1 {
		x := a.x + float32(i)*a.w/float32(numVLines)
		r.line(fyne.NewPos(x, a.y), fyne.NewPos(x, a.y+a.h), gridColor, 1)

		at := a.sc.xMin.Add(span * time.Duration(i) / time.Duration(numVLines))
		r.text(formatTime(at, span), fyne.NewPos(x-20, a.y+a.h+5), fyne.TextAlignCenter)
	}
}

// drawTrace draws the voltage curve.
func (r *scopeRenderer) drawTrace(a area, points []sample.Point) {
	if len(points) < 2 {
		return
	}
	prev := a.pos(points[0])
	for _, p := range points[1:] {
		next := a.pos(p)
		r.line(prev, next, traceColor, 1.5)
		prev = next
	}
}

// drawSummary prints the sample count and voltage range in the top left corner.
func (r *scopeRenderer) drawSummary(a area, total int, points []sample.Point) {
	if total == 0 {
		r.text("no samples", fyne.NewPos(a.x+10, a.y+10), fyne.TextAlignLeading)
		return
	}
	lo, hi := sample.Bounds(points)
	r.text(fmt.Sprintf("%d samples, %s .. %s", total, formatVoltage(lo), formatVoltage(hi)),
		fyne.NewPos(a.x+10, a.y+10), fyne.TextAlignLeading)
}

func (r *scopeRenderer) line(from, to fyne.Position, c color.Color, width float32) {
	line := canvas.NewLine(c)
	line.Position1 = from
	line.Position2 = to
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

func (r *scopeRenderer) text(s string, at fyne.Position, align fyne.TextAlign) {
	text := canvas.NewText(s, labelColor)
	text.TextSize = 10
	text.Alignment = align
	text.Move(at)
	r.objects = append(r.objects, text)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatVoltage(v float32) string {
	if v > -0.0005 && v < 0.0005 {
		return "0.000V"
	}
	return fmt.Sprintf("%.3fV", v)
}

// formatTime picks a label layout fitting the visible span.
func formatTime(t time.Time, span time.Duration) string {
	switch {
	case span >= 48*time.Hour:
		return t.Format("01-02 15h")
	case span >= 10*time.Minute:
		return t.Format("15:04")
	default:
		return t.Format("15:04:05")
	}
}
