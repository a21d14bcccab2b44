// Package upload validates multipart image uploads.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

// MaxImageBytes is the largest accepted image upload.
const MaxImageBytes int64 = 2 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Image is a validated upload held in memory.
type Image struct {
	Filename    string
	ContentType string
	Ext         string
	Data        []byte
}

// FormImage reads the named multipart field and validates size and content type.
// The content type is sniffed from the bytes; the client-declared type is ignored.
func FormImage(r *http.Request, field string) (Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return Image{}, httpx.Invalid(field, "is required")
		}
		return Image{}, httpx.Invalid(field, "could not be read")
	}
	defer file.Close()
	if header.Size > MaxImageBytes {
		return Image{}, httpx.Invalid(field, "must not exceed 2MB")
	}
	img, err := ReadImage(file, field)
	if err != nil {
		return Image{}, err
	}
	img.Filename = header.Filename
	return img, nil
}

// ReadImage validates an image stream.
func ReadImage(src io.Reader, field string) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(src, MaxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("upload: read: %w", err)
	}
	if int64(len(data)) > MaxImageBytes {
		return Image{}, httpx.Invalid(field, "must not exceed 2MB")
	}
	if len(data) == 0 {
		return Image{}, httpx.Invalid(field, "is empty")
	}
	mt := mimetype.Detect(data)
	ext, ok := allowedImageTypes[mt.String()]
	if !ok {
		return Image{}, httpx.Invalid(field, "must be a JPEG, PNG or GIF image")
	}
	return Image{ContentType: mt.String(), Ext: ext, Data: data}, nil
}

// ContentTypeForKey returns the image type a stored key was written with, based
// on the extension ReadImage assigned. Unknown extensions are served as bytes.
func ContentTypeForKey(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	for contentType, allowed := range allowedImageTypes {
		if allowed == ext {
			return contentType
		}
	}
	return "application/octet-stream"
}

// Thumbnail resizes the image to the given width, preserving aspect ratio, and
// re-encodes it as JPEG.
func Thumbnail(img Image, width int) (Image, error) {
	decoded, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, fmt.Errorf("upload: decode: %w", err)
	}
	if decoded.Bounds().Dx() > width {
		decoded = imaging.Resize(decoded, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, decoded, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return Image{}, fmt.Errorf("upload: encode: %w", err)
	}
	return Image{Filename: img.Filename, ContentType: "image/jpeg", Ext: ".jpg", Data: buf.Bytes()}, nil
}
