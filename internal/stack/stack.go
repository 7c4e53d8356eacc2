// Package stack loads and saves a build job as a directory of
// per-layer grayscale mask images, one file per z-slice in lexical
// order. It exists for the command-line tools; the processing core
// never touches the filesystem.
package stack

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/tiff"

	"github.com/ExpertResinPrints/UVToolsScripts/internal/plate"
)

// SupportedFormats returns the readable layer image extensions.
func SupportedFormats() []string {
	return []string{".png", ".tiff", ".tif", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// LoadDir reads every supported image in dir, in lexical filename
// order, into a job. All layers must share the first image's
// resolution. Layer metadata (exposure, heights) comes from the job
// settings the caller applies afterwards; heights default to a uniform
// spacing of heightStep mm.
func LoadDir(dir string, heightStep float64) (*plate.Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read layer directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && IsSupportedFormat(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no layer images in %s", dir)
	}
	sort.Strings(names)

	var job *plate.Job
	layers := make([]plate.Layer, 0, len(names))
	for i, name := range names {
		pixels, w, h, err := loadGray(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, name, err)
		}
		if job == nil {
			job = plate.NewJob(w, h)
		} else if w != job.Size.Width || h != job.Size.Height {
			return nil, fmt.Errorf("layer %d (%s): resolution %dx%d does not match plate %dx%d",
				i, name, w, h, job.Size.Width, job.Size.Height)
		}
		layers = append(layers, plate.Layer{
			Index:    i,
			Pixels:   pixels,
			HeightMM: float64(i+1) * heightStep,
		})
	}

	job.ReplaceLayers(layers)
	return job, nil
}

// SaveDir writes every layer of the job to dir as zero-padded PNG
// files (layer0000.png, layer0001.png, ...).
func SaveDir(job *plate.Job, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for i := 0; i < job.LayerCount(); i++ {
		layer := job.Layer(i)
		img := &image.Gray{
			Pix:    layer.Pixels,
			Stride: job.Size.Width,
			Rect:   image.Rect(0, 0, job.Size.Width, job.Size.Height),
		}
		path := filepath.Join(dir, fmt.Sprintf("layer%04d.png", i))
		if err := writePNG(path, img); err != nil {
			return fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return nil
}

// loadGray decodes an image file to an 8-bit grayscale pixel buffer.
func loadGray(path string) ([]uint8, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok || bounds.Min != image.Pt(0, 0) {
		gray = image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(gray, gray.Rect, img, bounds.Min, draw.Src)
	}
	return gray.Pix, bounds.Dx(), bounds.Dy(), nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
