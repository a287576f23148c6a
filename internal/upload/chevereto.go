package upload

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"reportbot/internal/util"
)

// DefaultCheveretoURL is the upload endpoint of the image host.
const DefaultCheveretoURL = "https://img.cuongdq.cyou/api/1/upload"

// Compile-time interface check.
var _ Uploader = (*CheveretoUploader)(nil)

// CheveretoUploader uploads images to a Chevereto v1 API.
type CheveretoUploader struct {
	url    string
	key    string
	client *http.Client
	logger *slog.Logger
}

// NewCheveretoUploader creates an uploader for the given endpoint and API key.
// A nil client gets a 60 second timeout.
func NewCheveretoUploader(endpoint, key string, client *http.Client, logger *slog.Logger) *CheveretoUploader {
	if endpoint == "" {
		endpoint = DefaultCheveretoURL
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = util.Discard()
	}
	return &CheveretoUploader{url: endpoint, key: key, client: client, logger: logger}
}

type cheveretoResponse struct {
	StatusCode int `json:"status_code"`
	Success    *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"success"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
	Image struct {
		URL string `json:"url"`
	} `json:"image"`
}

// Upload posts the base64-encoded file and returns the hosted image URL.
func (u *CheveretoUploader) Upload(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	form := url.Values{
		"key":    {u.key},
		"source": {base64.StdEncoding.EncodeToString(data)},
		"format": {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image upload: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading upload response: %w", err)
	}

	var result cheveretoResponse
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && result.Error != nil && result.Error.Message != "" {
			return "", fmt.Errorf("image upload: status %d: %s", resp.StatusCode, result.Error.Message)
		}
		return "", fmt.Errorf("image upload: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decoding upload response: %w", decodeErr)
	}

	if result.StatusCode != http.StatusOK || result.Success == nil || result.Success.Code != http.StatusOK {
		msg := "unknown error"
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("chevereto upload failed: %s", msg)
	}
	if result.Image.URL == "" {
		return "", errors.New("chevereto upload failed: response has no image url")
	}

	imageURL := EnsureHTTPS(result.Image.URL)
	u.logger.Info("image uploaded", "backend", "chevereto", "path", path, "url", imageURL)
	return imageURL, nil
}
