package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"badge-compliance-service/internal/domain/compliance"
)

// Detector turns an image into bounding boxes of a single object class.
// Implementations must not fail for a valid image with no detections;
// they return an empty slice instead.
type Detector interface {
	Detect(ctx context.Context, img image.Image, confThreshold float64) ([]compliance.Box, error)
}

// Embedder finds faces in an image region and returns one unit-normalized
// embedding per face. An empty slice means no face was found.
type Embedder interface {
	ExtractFaces(ctx context.Context, region image.Image) ([]compliance.Face, error)
}

// HTTPDetector calls an external inference service over a multipart POST.
type HTTPDetector struct {
	url    string
	client *http.Client
}

func NewHTTPDetector(url string) *HTTPDetector {
	return &HTTPDetector{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *HTTPDetector) Detect(ctx context.Context, img image.Image, confThreshold float64) ([]compliance.Box, error) {
	var result struct {
		Detections []compliance.Box `json:"detections"`
	}
	fields := map[string]string{"conf_threshold": strconv.FormatFloat(confThreshold, 'f', -1, 64)}
	if err := postImage(ctx, d.client, d.url, img, fields, &result); err != nil {
		return nil, err
	}

	boxes := make([]compliance.Box, 0, len(result.Detections))
	for _, b := range result.Detections {
		if b.Confidence >= confThreshold {
			boxes = append(boxes, b)
		}
	}
	return boxes, nil
}

// CheckHealth probes the inference service.
func (d *HTTPDetector) CheckHealth(ctx context.Context) error {
	return checkHealth(ctx, d.client, d.url)
}

// HTTPEmbedder calls an external face-analysis service over a multipart POST.
type HTTPEmbedder struct {
	url    string
	client *http.Client
}

func NewHTTPEmbedder(url string) *HTTPEmbedder {
	return &HTTPEmbedder{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *HTTPEmbedder) ExtractFaces(ctx context.Context, region image.Image) ([]compliance.Face, error) {
	var result struct {
		Faces []compliance.Face `json:"faces"`
	}
	if err := postImage(ctx, e.client, e.url, region, nil, &result); err != nil {
		return nil, err
	}
	return result.Faces, nil
}

func (e *HTTPEmbedder) CheckHealth(ctx context.Context) error {
	return checkHealth(ctx, e.client, e.url)
}

func postImage(ctx context.Context, client *http.Client, url string, img image.Image, fields map[string]string, out interface{}) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference failed with status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkHealth(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
