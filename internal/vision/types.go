// Package vision holds the external collaborators around the tracking core:
// camera capture, the face detection service client, face cropping, and the
// live preview window. The core consumes these through small interfaces and
// never touches a device or socket itself.
package vision

// Region is a face bounding box in frame coordinates, using the
// top/right/bottom/left convention of the detection service.
type Region struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// Width returns the horizontal extent of the region.
func (r Region) Width() int {
	return r.Right - r.Left
}

// Height returns the vertical extent of the region.
func (r Region) Height() int {
	return r.Bottom - r.Top
}

// Detection is one face found in a frame: its location, the detector's
// confidence, and the fixed-length identity embedding. Detections live for
// a single cycle and are never persisted.
type Detection struct {
	Region     Region
	Confidence float64
	Embedding  []float32
}

// Label pairs a face region with the resolved identity name for rendering.
type Label struct {
	Region Region
	Name   string
}
