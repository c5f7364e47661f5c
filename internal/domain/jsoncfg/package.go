package jsoncfg

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"logoforge/internal/domain"
)

// PackageRequest is the JSON contract for requesting a complete asset package.
type PackageRequest struct {
	Image          string `json:"image"`
	BrandName      string `json:"brand_name"`
	Industry       string `json:"industry"`
	Style          string `json:"style"`
	Prompt         string `json:"prompt"`
	Seed           int64  `json:"seed"`
	Locale         string `json:"locale"`
	RequesterID    string `json:"requester_id"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	Async          bool   `json:"async"`
}

const (
	// DefaultTimeoutSeconds applies when the request omits timeout_seconds.
	DefaultTimeoutSeconds = 120
	// MaxTimeoutSeconds caps the overall package deadline.
	MaxTimeoutSeconds = 600
	// MaxBrandNameLength bounds the brand name used in file names and README.
	MaxBrandNameLength = 120
	// DefaultLocale is applied when no locale preference is provided.
	DefaultLocale = "en"
)

// Normalize trims the request and applies server defaults and limits.
func (p *PackageRequest) Normalize(preferredLocale string) {
	if p == nil {
		return
	}
	p.BrandName = strings.TrimSpace(p.BrandName)
	p.Industry = strings.TrimSpace(p.Industry)
	p.Style = strings.TrimSpace(p.Style)
	p.Prompt = strings.TrimSpace(p.Prompt)
	p.Image = strings.TrimSpace(p.Image)
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if p.TimeoutSeconds > MaxTimeoutSeconds {
		p.TimeoutSeconds = MaxTimeoutSeconds
	}
	if p.Locale == "" {
		if preferredLocale != "" {
			p.Locale = preferredLocale
		} else {
			p.Locale = DefaultLocale
		}
	}
}

// Validate ensures the request satisfies the contract before generation.
func (p PackageRequest) Validate() error {
	if p.BrandName == "" {
		return fmt.Errorf("brand_name is required")
	}
	if len([]rune(p.BrandName)) > MaxBrandNameLength {
		return fmt.Errorf("brand_name must be at most %d characters", MaxBrandNameLength)
	}
	if p.TimeoutSeconds < 1 || p.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("timeout_seconds must be between 1 and %d", MaxTimeoutSeconds)
	}
	if p.Image != "" {
		if _, err := p.DecodeImage(); err != nil {
			return err
		}
	}
	return nil
}

// DecodeImage returns the raw image bytes. Both bare base64 and data URLs
// are accepted. An empty image yields nil.
func (p PackageRequest) DecodeImage() ([]byte, error) {
	payload := p.Image
	if payload == "" {
		return nil, nil
	}
	if strings.HasPrefix(payload, "data:") {
		_, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, fmt.Errorf("image must be a base64 data url")
		}
		payload = rest
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("image must be base64 encoded: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	return data, nil
}

// Metadata converts the request into source metadata.
func (p PackageRequest) Metadata() domain.SourceMetadata {
	return domain.SourceMetadata{
		BrandName:   p.BrandName,
		Industry:    p.Industry,
		Style:       p.Style,
		Prompt:      p.Prompt,
		Seed:        p.Seed,
		RequesterID: p.RequesterID,
		Locale:      p.Locale,
	}
}

// Timeout returns the overall deadline as a duration.
func (p PackageRequest) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}
