package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrNoFace is returned by EmbedReference when the service finds no face in
// a stored reference image.
var ErrNoFace = errors.New("no face found in image")

// Client talks to the face detection/embedding service over HTTP. The
// service runs the actual models; this side only moves JPEG bytes and
// filters results the core should never see.
type Client struct {
	baseURL       string
	minWidth      int
	minHeight     int
	minConfidence float64
	client        *http.Client
}

// NewClient creates a detector client. Detections smaller than
// minWidth x minHeight are dropped before they reach the caller;
// minConfidence is forwarded so the service applies its score floor.
func NewClient(baseURL string, minWidth, minHeight int, minConfidence float64) *Client {
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		minWidth:      minWidth,
		minHeight:     minHeight,
		minConfidence: minConfidence,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// detectResponse is the wire format of the detection endpoint.
type detectResponse struct {
	Faces []struct {
		Region    Region    `json:"region"`
		DetScore  float64   `json:"det_score"`
		Embedding []float32 `json:"embedding"`
	} `json:"faces"`
}

// embedResponse is the wire format of the single-face embedding endpoint.
type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// DetectFaces posts a JPEG frame and returns the detected faces with their
// embeddings, filtered by the configured minimum region size.
func (c *Client) DetectFaces(ctx context.Context, frameJPEG []byte) ([]Detection, error) {
	endpoint := fmt.Sprintf("/detect/faces?min_confidence=%g", c.minConfidence)
	body, err := c.postMultipartImage(ctx, endpoint, frameJPEG)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing detection response: %w", err)
	}

	var detections []Detection
	for _, face := range resp.Faces {
		if face.Region.Width() < c.minWidth || face.Region.Height() < c.minHeight {
			continue
		}
		if len(face.Embedding) == 0 {
			continue
		}
		detections = append(detections, Detection{
			Region:     face.Region,
			Confidence: face.DetScore,
			Embedding:  face.Embedding,
		})
	}
	return detections, nil
}

// EmbedReference extracts one embedding from a stored reference image. Used
// only while rebuilding the gallery from the catalog at startup.
func (c *Client) EmbedReference(ctx context.Context, imageData []byte) ([]float32, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrNoFace
	}
	return resp.Embedding, nil
}

// postMultipartImage sends the image as a multipart form to the given
// endpoint and returns the raw response body.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("writing image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading detector response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}
