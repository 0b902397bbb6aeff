package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

type ImageProcessor struct {
	maxSide uint
	quality int
	log     *zap.Logger
}

func NewImageProcessor(maxSide, quality int, log *zap.Logger) *ImageProcessor {
	if maxSide < 0 {
		maxSide = 0
	}
	return &ImageProcessor{maxSide: uint(maxSide), quality: quality, log: log}
}

// CompressImage decodes a PNG or JPEG file, shrinks it so neither side exceeds
// maxSide (0 keeps the original size) and re-encodes it as JPEG.
func (p *ImageProcessor) CompressImage(inputPath string) ([]byte, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", inputPath, err)
	}

	bounds := img.Bounds()
	if p.maxSide > 0 && (uint(bounds.Dx()) > p.maxSide || uint(bounds.Dy()) > p.maxSide) {
		img = resize.Thumbnail(p.maxSide, p.maxSide, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	p.log.Debug("Image compressed",
		zap.String("input", inputPath),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("quality", p.quality),
		zap.Int("size", buf.Len()))

	return buf.Bytes(), nil
}

// EncodeBase64 returns the compressed image as standard base64 text.
func (p *ImageProcessor) EncodeBase64(inputPath string) (string, error) {
	data, err := p.CompressImage(inputPath)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func SniffContentType(data []byte, ext string) string {
	if len(data) > 0 {
		if ct := http.DetectContentType(data); ct == "image/png" || ct == "image/jpeg" {
			return ct
		}
	}
	if ext == "png" {
		return "image/png"
	}
	return "image/jpeg"
}
