package folio

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
)

const (
	maxImageWidth = 800
	jpegQuality   = 80
)

// LocalUploader stores uploads on the local filesystem under the static
// directory, re-encoding everything as width-capped JPEG. It serves
// deployments that keep images next to the SPA build instead of on a media
// host.
type LocalUploader struct {
	Dir string
}

// NewLocalUploader creates an uploader writing into dir. The directory is
// created on first upload.
func NewLocalUploader(dir string) *LocalUploader {
	return &LocalUploader{Dir: dir}
}

// Upload decodes the base64 payload, resizes it to at most maxImageWidth,
// and writes it as JPEG under a fresh UUID name.
func (u *LocalUploader) Upload(_ context.Context, payload string) (UploadResult, error) {
	data, err := decodeImagePayload(payload)
	if err != nil {
		return UploadResult{}, fmt.Errorf("decode payload: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return UploadResult{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxImageWidth {
		newH := h * maxImageWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxImageWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxImageWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return UploadResult{}, fmt.Errorf("encode jpeg: %w", err)
	}

	id := uuid.NewString()
	filename := id + ".jpg"
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return UploadResult{}, fmt.Errorf("create uploads dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(u.Dir, filename), buf.Bytes(), 0o644); err != nil {
		return UploadResult{}, fmt.Errorf("write image: %w", err)
	}

	return UploadResult{
		URL:      "/uploads/" + filename,
		PublicID: id,
		Width:    w,
		Height:   h,
	}, nil
}

// decodeImagePayload accepts either a data URI ("data:image/png;base64,...")
// or bare base64.
func decodeImagePayload(payload string) ([]byte, error) {
	if strings.HasPrefix(payload, "data:") {
		i := strings.Index(payload, ",")
		if i < 0 {
			return nil, fmt.Errorf("malformed data URI")
		}
		payload = payload[i+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
