package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"stylesync/internal/config"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	tryOnEndpointPath = "/try-on-file"

	// upstream error bodies are read for logging only, never forwarded
	maxErrorBodyBytes = 4096
)

// Error categories for failed upstream calls. Callers translate these into
// user-facing messages; raw upstream bodies never cross this boundary.
var (
	ErrBadInput    = errors.New("upstream rejected the supplied input")
	ErrAuth        = errors.New("upstream authentication failed")
	ErrRateLimited = errors.New("upstream rate limit exceeded")
	ErrUnavailable = errors.New("upstream service unavailable")
	ErrTimeout     = errors.New("upstream request timed out")
	ErrBadContract = errors.New("upstream returned an unexpected payload")
)

// FilePart is one image part of a try-on request.
type FilePart struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Request carries the fields of one generation call. Exactly one of
// AvatarImage/AvatarPrompt must be set, ClothingImage is required, and at
// most one of BackgroundImage/BackgroundPrompt may be set.
type Request struct {
	AvatarImage      *FilePart
	AvatarPrompt     string
	ClothingImage    *FilePart
	BackgroundImage  *FilePart
	BackgroundPrompt string
	Seed             string
}

// Result is a successful generation: raw image bytes plus the seed the
// service reports having used, when it does.
type Result struct {
	Data        []byte
	ContentType string
	Seed        string
}

// Client calls the try-on diffusion service. The credential travels only in
// request headers.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

// NewClient builds a Client from configuration. A missing or placeholder key
// is a configuration error surfaced before any request is made.
func NewClient(cfg config.Config) (*Client, error) {
	if err := cfg.ValidateUpstream(); err != nil {
		return nil, err
	}
	host := strings.TrimSpace(cfg.RapidAPIHost)
	if host == "" {
		return nil, errors.New("upstream host is not configured")
	}
	timeout := cfg.UpstreamTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		host:       host,
		apiKey:     strings.TrimSpace(cfg.RapidAPIKey),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// NewClientWithHTTP is like NewClient but with an injected http.Client, for
// pointing the client at a test server.
func NewClientWithHTTP(cfg config.Config, httpClient *http.Client) (*Client, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c, nil
}

// Host returns the configured upstream host.
func (c *Client) Host() string {
	return c.host
}

// baseURL allows the host to carry an explicit scheme so tests can point the
// client at a local server; production hosts are bare and default to https.
func (c *Client) baseURL() string {
	if strings.HasPrefix(c.host, "http://") || strings.HasPrefix(c.host, "https://") {
		return strings.TrimRight(c.host, "/")
	}
	return "https://" + c.host
}

// TryOn submits one generation request and returns the resulting image.
func (c *Client) TryOn(ctx context.Context, request Request) (*Result, error) {
	if c == nil {
		return nil, errors.New("upstream client not initialised")
	}
	if err := request.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadInput, err)
	}

	body, contentType, err := request.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode try-on request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+tryOnEndpointPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create try-on request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("x-rapidapi-key", c.apiKey)

	logrus.WithFields(logrus.Fields{
		"has_avatar_image":     request.AvatarImage != nil,
		"has_avatar_prompt":    strings.TrimSpace(request.AvatarPrompt) != "",
		"has_background_image": request.BackgroundImage != nil,
		"has_background_text":  strings.TrimSpace(request.BackgroundPrompt) != "",
		"payload_bytes":        len(body),
	}).Info("tryon_upstream_request")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.classifyStatus(resp)
	}

	respContentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(respContentType, "image/") {
		logrus.WithField("content_type", respContentType).Error("tryon_upstream_bad_content_type")
		return nil, ErrBadContract
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image body", ErrBadContract)
	}

	logrus.WithFields(logrus.Fields{
		"status":      resp.StatusCode,
		"bytes":       len(data),
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("tryon_upstream_success")

	seed := strings.TrimSpace(resp.Header.Get("X-Seed"))
	if seed == "" {
		seed = strings.TrimSpace(request.Seed)
	}

	return &Result{
		Data:        data,
		ContentType: respContentType,
		Seed:        seed,
	}, nil
}

// Validate checks the mutual-exclusivity and presence rules.
func (request Request) Validate() error {
	hasAvatarImage := request.AvatarImage != nil && len(request.AvatarImage.Data) > 0
	hasAvatarPrompt := strings.TrimSpace(request.AvatarPrompt) != ""
	if !hasAvatarImage && !hasAvatarPrompt {
		return errors.New("either an avatar image or an avatar prompt is required")
	}
	if hasAvatarImage && hasAvatarPrompt {
		return errors.New("avatar image and avatar prompt are mutually exclusive")
	}
	if request.ClothingImage == nil || len(request.ClothingImage.Data) == 0 {
		return errors.New("clothing image is required")
	}
	hasBackgroundImage := request.BackgroundImage != nil && len(request.BackgroundImage.Data) > 0
	hasBackgroundPrompt := strings.TrimSpace(request.BackgroundPrompt) != ""
	if hasBackgroundImage && hasBackgroundPrompt {
		return errors.New("background image and background prompt are mutually exclusive")
	}
	return nil
}

// Encode renders the request as a multipart/form-data body.
func (request Request) Encode() ([]byte, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	if request.AvatarImage != nil && len(request.AvatarImage.Data) > 0 {
		if err := writeFilePart(writer, "avatar_image", request.AvatarImage); err != nil {
			return nil, "", err
		}
	} else if prompt := strings.TrimSpace(request.AvatarPrompt); prompt != "" {
		if err := writer.WriteField("avatar_prompt", prompt); err != nil {
			return nil, "", err
		}
	}

	if err := writeFilePart(writer, "clothing_image", request.ClothingImage); err != nil {
		return nil, "", err
	}

	if request.BackgroundImage != nil && len(request.BackgroundImage.Data) > 0 {
		if err := writeFilePart(writer, "background_image", request.BackgroundImage); err != nil {
			return nil, "", err
		}
	} else if prompt := strings.TrimSpace(request.BackgroundPrompt); prompt != "" {
		if err := writer.WriteField("background_prompt", prompt); err != nil {
			return nil, "", err
		}
	}

	if seed := strings.TrimSpace(request.Seed); seed != "" {
		if err := writer.WriteField("seed", seed); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func writeFilePart(writer *multipart.Writer, field string, part *FilePart) error {
	filename := strings.TrimSpace(part.Filename)
	if filename == "" {
		filename = field
	}
	w, err := writer.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	_, err = w.Write(part.Data)
	return err
}

func (c *Client) classifyStatus(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	logrus.WithFields(logrus.Fields{
		"status": resp.StatusCode,
		"body":   strings.TrimSpace(string(snippet)),
	}).Error("tryon_upstream_error")

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return ErrBadInput
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode == http.StatusRequestTimeout:
		return ErrTimeout
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode >= 500:
		return ErrUnavailable
	default:
		return ErrBadInput
	}
}

func classifyTransportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return context.Canceled
	default:
		// net/http wraps its own timeout errors
		if strings.Contains(strings.ToLower(err.Error()), "timeout") {
			return ErrTimeout
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}
