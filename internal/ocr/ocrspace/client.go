package ocrspace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"hemotwin-backend/internal/ocr"
)

const (
	DefaultURL      = "https://api.ocr.space/parse/image"
	DefaultLanguage = "eng"
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 512
)

// Config holds configuration for the OCR.space client.
type Config struct {
	APIKey   string
	URL      string
	Language string
	Timeout  time.Duration
}

// Client implements ocr.Provider using the OCR.space parse API.
type Client struct {
	apiKey   string
	url      string
	language string
	client   *http.Client
}

// New creates a new OCR.space client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("ocr.space api key is required")
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:   cfg.APIKey,
		url:      cfg.URL,
		language: cfg.Language,
		client:   &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText        string `json:"ParsedText"`
		FileParseExitCode int    `json:"FileParseExitCode"`
		ErrorMessage      string `json:"ErrorMessage"`
	} `json:"ParsedResults"`
	OCRExitCode           int             `json:"OCRExitCode"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// Recognize uploads the image and returns the first parsed text block.
// A response without parsed results yields "" and no error.
func (c *Client) Recognize(ctx context.Context, img ocr.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", ocr.ErrEmptyImage
	}

	body, contentType, err := c.buildForm(img)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr.space request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ocr.UpstreamError{StatusCode: resp.StatusCode, Message: truncate(string(raw), maxErrorBody)}
	}

	var parsed parseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode ocr.space response: %w", err)
	}
	if parsed.IsErroredOnProcessing {
		return "", &ocr.ProcessingError{Message: errorMessage(parsed.ErrorMessage)}
	}
	if len(parsed.ParsedResults) == 0 {
		return "", nil
	}
	return parsed.ParsedResults[0].ParsedText, nil
}

func (c *Client) buildForm(img ocr.Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("language", c.language); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("isOverlayRequired", "false"); err != nil {
		return nil, "", err
	}
	name := img.Name
	if name == "" {
		name = "report.jpg"
	}
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// errorMessage flattens the ErrorMessage field, which is either a string or a list.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "unknown error"
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	return string(raw)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ ocr.Provider = (*Client)(nil)
