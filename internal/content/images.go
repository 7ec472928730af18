package content

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"
)

const probeSize = 4096

var logoKeywords = []string{"logo", "brand", "icon", "sprite", "avatar"}

type ImageProber struct {
	minWidth  int
	minHeight int
	userAgent string
	timeout   time.Duration
}

func NewImageProber(minWidth, minHeight int, userAgent string, timeout time.Duration) *ImageProber {
	return &ImageProber{
		minWidth:  minWidth,
		minHeight: minHeight,
		userAgent: userAgent,
		timeout:   timeout,
	}
}

// Pick returns the first candidate that is not logo-like and whose decoded
// dimensions meet the minimum, or "" when none qualifies.
func (p *ImageProber) Pick(ctx context.Context, client *http.Client, candidates []string) string {
	for _, candidate := range candidates {
		if candidate == "" || isLikelyLogo(candidate) {
			continue
		}

		width, height, err := p.probe(ctx, client, candidate)
		if err != nil {
			slog.Debug("Failed to probe image", "url", candidate, "error", err)
			continue
		}

		if width >= p.minWidth && height >= p.minHeight {
			slog.Debug("Image accepted", "url", candidate, "width", width, "height", height)
			return candidate
		}
		slog.Debug("Image rejected as too small", "url", candidate, "width", width, "height", height)
	}

	return ""
}

func (p *ImageProber) probe(ctx context.Context, client *http.Client, url string) (int, int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, probeSize))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	if len(head) == 0 {
		return 0, 0, fmt.Errorf("empty image body")
	}

	config, _, err := image.DecodeConfig(bytes.NewReader(head))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header: %w", err)
	}

	return config.Width, config.Height, nil
}

func isLikelyLogo(url string) bool {
	lower := strings.ToLower(url)
	for _, keyword := range logoKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
