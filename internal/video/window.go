package video

import "fmt"

// Alignment required of crop offsets and widths, in bytes. The dumpers
// DMA in bursts twice as wide when both pixel paths run.
const (
	alignSingle = 8
	alignDual   = 16
)

// Window is the capture crop rectangle. A Window with Full set captures
// the whole field; X/Y/Width/Height are ignored.
type Window struct {
	Full   bool
	X, Y   int
	Width  int
	Height int
}

// FullField returns a window covering the entire field.
func FullField() Window {
	return Window{Full: true}
}

// Crop returns a window covering the given rectangle.
func Crop(x, y, width, height int) Window {
	return Window{X: x, Y: y, Width: width, Height: height}
}

// AlignmentError reports a crop rectangle whose byte geometry the dumper
// cannot express. Raised before any hardware write.
type AlignmentError struct {
	Window    Window
	Alignment int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("crop (%d,%d %dx%d) not aligned to %d bytes",
		e.Window.X, e.Window.Y, e.Window.Width, e.Window.Height, e.Alignment)
}

// resolve turns a window into concrete coordinates against the field
// resolution and validates alignment for the current pixel mode.
func (w Window) resolve(fieldWidth, fieldHeight, bytesPerPixel int, dualPixel bool) (Window, error) {
	if w.Full {
		w = Window{X: 0, Y: 0, Width: fieldWidth, Height: fieldHeight}
	}

	align := alignSingle
	if dualPixel {
		align = alignDual
	}
	if (w.X*bytesPerPixel)%align != 0 || (w.Width*bytesPerPixel)%align != 0 {
		return Window{}, &AlignmentError{Window: w, Alignment: align}
	}
	if w.X < 0 || w.Y < 0 || w.Width <= 0 || w.Height <= 0 ||
		w.X+w.Width > fieldWidth || w.Y+w.Height > fieldHeight {
		return Window{}, fmt.Errorf("crop (%d,%d %dx%d) outside field %dx%d",
			w.X, w.Y, w.Width, w.Height, fieldWidth, fieldHeight)
	}
	return w, nil
}
