package tryon

import (
	"bytes"
	"fmt"
	"image"
	"net/http"
	"strings"
	"unicode/utf8"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	maxFileSize = 12 * 1024 * 1024
	minFileSize = 1024

	minDimension = 256
	maxDimension = 4096

	minPromptLen = 3
	maxPromptLen = 500
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/avif": true,
}

const (
	msgOffline             = "You appear to be offline. Please check your connection."
	msgModelRequired       = "Please provide either a model image or avatar description."
	msgClothingRequired    = "Please upload a clothing image."
	msgInvalidPrompt       = "Please provide a valid description."
	msgFileTooLarge        = "File too large. Maximum size is 12MB."
	msgFileTooSmall        = "File too small. Minimum size is 1KB."
	msgFileInvalidType     = "Invalid file type. Please upload a JPEG, PNG, or WebP image."
	msgDimensionsTooSmall  = "Image too small. Minimum dimensions are 256x256 pixels."
	msgDimensionsTooLarge  = "Image too large. Maximum dimensions are 4096x4096 pixels."
	msgRateLimited         = "Too many requests. Please wait a moment and try again."
	msgRequestTimeout      = "Request timeout. Please try again later."
	msgNetworkError        = "Network error. Please check your connection and try again."
	msgInvalidResponse     = "Invalid response from image generation service."
	msgEmptyResponse       = "Empty image received from service."
	msgGenerationFailed    = "Failed to generate virtual try-on. Please try again."
	msgServiceUnavailable  = "Service temporarily unavailable. Please try again later."
	msgAuthenticationError = "Authentication failed. Please check your API key."
)

// validateInputs runs every pre-flight rule and joins the violations into a
// single message. An empty return means the inputs may go on the wire.
func validateInputs(subject SubjectInput, garment *ImageFile, background BackgroundInput, online bool) string {
	if !online {
		return msgOffline
	}

	var violations []string

	if subject.IsZero() {
		violations = append(violations, msgModelRequired)
	}
	if garment == nil || len(garment.Data) == 0 {
		violations = append(violations, msgClothingRequired)
	}

	if file, ok := subject.Image(); ok {
		if msg := validateFile(file); msg != "" {
			violations = append(violations, msg)
		}
	}
	if garment != nil && len(garment.Data) > 0 {
		if msg := validateFile(garment); msg != "" {
			violations = append(violations, msg)
		}
	}
	if file, ok := background.Image(); ok {
		if msg := validateFile(file); msg != "" {
			violations = append(violations, msg)
		}
	}

	if prompt, ok := subject.Prompt(); ok {
		if msg := validatePrompt(prompt, "Avatar"); msg != "" {
			violations = append(violations, msg)
		}
	}
	if prompt, ok := background.Prompt(); ok {
		if msg := validatePrompt(prompt, "Background"); msg != "" {
			violations = append(violations, msg)
		}
	}

	return strings.Join(violations, ", ")
}

func validateFile(file *ImageFile) string {
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}
	if !allowedImageTypes[strings.ToLower(contentType)] {
		return msgFileInvalidType
	}
	if file.Size() > maxFileSize {
		return msgFileTooLarge
	}
	if file.Size() < minFileSize {
		return msgFileTooSmall
	}

	// Dimension checks are best effort: formats the decoders cannot parse
	// (avif among them) pass through unchecked.
	cfg, _, err := image.DecodeConfig(bytes.NewReader(file.Data))
	if err != nil {
		return ""
	}
	if cfg.Width < minDimension || cfg.Height < minDimension {
		return msgDimensionsTooSmall
	}
	if cfg.Width > maxDimension || cfg.Height > maxDimension {
		return msgDimensionsTooLarge
	}
	return ""
}

func validatePrompt(prompt string, field string) string {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return ""
	}
	if utf8.RuneCountInString(trimmed) < minPromptLen {
		return msgInvalidPrompt
	}
	if utf8.RuneCountInString(trimmed) > maxPromptLen {
		return fmt.Sprintf("%s description too long. Maximum %d characters.", field, maxPromptLen)
	}
	return ""
}
