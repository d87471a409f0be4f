package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ErrFrameRead signals that the camera stopped delivering frames. The
// tracking loop treats it as fatal and proceeds to teardown.
var ErrFrameRead = errors.New("failed to read frame from camera")

// Camera wraps a gocv video capture device as a frame source.
type Camera struct {
	device string
	cap    *gocv.VideoCapture
	mat    gocv.Mat
}

// OpenCamera opens the capture device and configures the frame size.
// Failure here is a setup failure: the caller aborts before tracking starts.
func OpenCamera(device string, width, height int) (*Camera, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("opening camera %s: %w", device, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("camera %s is not available", device)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(height))

	// Let the sensor settle brightness before the first real frame.
	cap.Grab(10)

	return &Camera{
		device: device,
		cap:    cap,
		mat:    gocv.NewMat(),
	}, nil
}

// Read grabs the next frame. Returns ErrFrameRead once the device stops
// producing frames.
func (c *Camera) Read() (image.Image, error) {
	if ok := c.cap.Read(&c.mat); !ok {
		return nil, fmt.Errorf("%w: device %s", ErrFrameRead, c.device)
	}
	if c.mat.Empty() {
		return nil, fmt.Errorf("%w: empty frame from device %s", ErrFrameRead, c.device)
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return img, nil
}

// Close releases the capture device.
func (c *Camera) Close() error {
	c.mat.Close()
	return c.cap.Close()
}
