package scope

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/picolog/pkg/config"
	"github.com/itohio/picolog/pkg/sample"
)

// MinWindow is the shortest time span shown on the X axis.
const MinWindow = time.Minute

// ScopeWidget is a custom Fyne widget that plots logged voltages over time.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu      sync.RWMutex
	points  []sample.Point
	display []sample.Point
	scale   scale

	maxDisplayPoints int
}

// scale holds the visible data range.
type scale struct {
	yMin, yMax float32
	xMin, xMax time.Time
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config) *ScopeWidget {
	maxPoints := cfg.Plot.MaxPoints
	if maxPoints <= 0 {
		maxPoints = config.Default().Plot.MaxPoints
	}
	s := &ScopeWidget{
		cfg:              cfg,
		display:          make([]sample.Point, 0, maxPoints),
		scale:            scaleFor(nil),
		maxDisplayPoints: maxPoints,
	}
	s.ExtendBaseWidget(s)
	return s
}

// UpdateData replaces the plotted points.
// Must be called from the Fyne goroutine (use fyne.Do elsewhere).
func (s *ScopeWidget) UpdateData(points []sample.Point) {
	s.mu.Lock()
	s.points = points
	s.display = sample.DownsamplePoints(s.display, points, s.maxDisplayPoints)
	s.scale = scaleFor(s.display)
	s.mu.Unlock()

	s.Refresh()
}

// Len returns the number of points held by the widget.
func (s *ScopeWidget) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// scaleFor calculates axis ranges with a 10% vertical margin.
func scaleFor(points []sample.Point) scale {
	if len(points) == 0 {
		now := time.Now()
		return scale{yMin: 0, yMax: 1, xMin: now, xMax: now.Add(MinWindow)}
	}

	lo, hi := sample.Bounds(points)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	margin := span * 0.1

	sc := scale{
		yMin: lo - margin,
		yMax: hi + margin,
		xMin: points[0].Time,
		xMax: points[len(points)-1].Time,
	}
	if sc.xMax.Sub(sc.xMin) < MinWindow {
		sc.xMax = sc.xMin.Add(MinWindow)
	}
	return sc
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:   s,
		grid:    grid,
		objects: []fyne.CanvasObject{grid},
	}
}
