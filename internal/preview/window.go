package preview

import "gocv.io/x/gocv"

// Show displays a frame in a window and blocks until a key is pressed.
// Empty frames are ignored so headless callers degrade to a no-op.
func Show(title string, frame gocv.Mat) {
	if frame.Empty() {
		return
	}
	window := gocv.NewWindow(title)
	defer window.Close()
	window.IMShow(frame)
	window.WaitKey(0)
}
