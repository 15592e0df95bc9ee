package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

// ArtworkProvider keeps one generated cover per project and serves it resized to a square PNG.
type ArtworkProvider struct {
	images  ports.ImageGenerator
	dir     string
	size    int
	enabled bool
}

var _ ports.ArtworkProvider = (*ArtworkProvider)(nil)

// NewArtworkProvider stores images under mediaDir/podcast_images.
func NewArtworkProvider(images ports.ImageGenerator, mediaDir string, size int, enabled bool) *ArtworkProvider {
	return &ArtworkProvider{
		images:  images,
		dir:     filepath.Join(mediaDir, "podcast_images"),
		size:    size,
		enabled: enabled,
	}
}

// SourcePath is where the unscaled cover of projectID is cached.
func (a *ArtworkProvider) SourcePath(projectID string) string {
	return filepath.Join(a.dir, projectID+".png")
}

// Artwork returns a size×size PNG for projectID, generating the source image from prompt if needed.
func (a *ArtworkProvider) Artwork(ctx context.Context, projectID, prompt string) (string, error) {
	source := a.SourcePath(projectID)
	if _, err := os.Stat(source); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("stat artwork: %w", err)
		}
		if err := a.generate(ctx, source, prompt); err != nil {
			return "", err
		}
	}

	target := filepath.Join(a.dir, projectID+"_"+strconv.Itoa(a.size)+".png")
	if err := a.prepare(source, target); err != nil {
		return "", err
	}
	return target, nil
}

func (a *ArtworkProvider) generate(ctx context.Context, path, prompt string) error {
	if !a.enabled || a.images == nil {
		return fmt.Errorf("image generation disabled: %w", domain.ErrMisconfigured)
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("no artwork prompt: %w", domain.ErrMisconfigured)
	}
	img, err := a.images.GenerateImage(ctx, prompt)
	if err != nil {
		return fmt.Errorf("generate artwork: %w", err)
	}
	return writeFileAtomic(path, img)
}

// prepare writes an exact size×size RGB PNG of source to target.
func (a *ArtworkProvider) prepare(source, target string) error {
	raw, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read artwork: %w", err)
	}
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decode artwork: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, a.size, a.size))
	b := src.Bounds()
	if b.Dx() == a.size && b.Dy() == a.size {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return fmt.Errorf("encode artwork: %w", err)
	}
	return writeFileAtomic(target, buf.Bytes())
}
