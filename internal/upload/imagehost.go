package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ImageHost uploads to an imgbb-style hosting API: multipart form with an
// "image" field and an API key in the query string, JSON response carrying
// the display URL.
type ImageHost struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewImageHost(endpoint, apiKey string) *ImageHost {
	return &ImageHost{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

type imageHostResponse struct {
	Data struct {
		DisplayURL string `json:"display_url"`
	} `json:"data"`
}

func (h *ImageHost) Upload(ctx context.Context, r io.Reader, _ string) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", "image")
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copying image bytes: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("closing upload form: %w", err)
	}

	url := h.endpoint + "?key=" + h.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := h.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image host returned %s", resp.Status)
	}

	var parsed imageHostResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if parsed.Data.DisplayURL == "" {
		return "", fmt.Errorf("image host returned no url")
	}
	return parsed.Data.DisplayURL, nil
}
