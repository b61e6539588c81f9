package editor

import "github.com/starford/flowboard/internal/models"

// Zoom bounds of the canvas.
const (
	MinZoom = 0.1
	MaxZoom = 2.0
)

// Viewport is the canvas pan offset (screen pixels) and zoom factor.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// InitialViewport is the viewport every mounted editor starts from.
var InitialViewport = Viewport{X: 0, Y: 0, Zoom: 1}

// ToCanvas converts a screen point relative to the canvas origin into
// canvas coordinates.
func (v Viewport) ToCanvas(p models.Position) models.Position {
	zoom := v.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return models.Position{X: (p.X - v.X) / zoom, Y: (p.Y - v.Y) / zoom}
}

func clampZoom(z float64) float64 {
	return min(max(z, MinZoom), MaxZoom)
}
