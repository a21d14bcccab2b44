package upload

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hydrobill/hydrobill/internal/platform/httpx"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFormImageAcceptsPNG(t *testing.T) {
	req := multipartRequest(t, "proof", "proof.png", pngBytes(t, 4, 4))
	img, err := FormImage(req, "proof")
	require.NoError(t, err)
	require.Equal(t, "image/png", img.ContentType)
	require.Equal(t, ".png", img.Ext)
	require.Equal(t, "proof.png", img.Filename)
}

func TestFormImageRejectsText(t *testing.T) {
	req := multipartRequest(t, "proof", "proof.png", []byte("not an image at all"))
	_, err := FormImage(req, "proof")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestFormImageMissingField(t *testing.T) {
	req := multipartRequest(t, "other", "x.png", pngBytes(t, 1, 1))
	_, err := FormImage(req, "proof")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestReadImageRejectsOversize(t *testing.T) {
	big := make([]byte, MaxImageBytes+10)
	_, err := ReadImage(bytes.NewReader(big), "avatar")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestThumbnailShrinksWideImages(t *testing.T) {
	img, err := ReadImage(bytes.NewReader(pngBytes(t, 600, 300)), "avatar")
	require.NoError(t, err)
	thumb, err := Thumbnail(img, 200)
	require.NoError(t, err)
	require.Equal(t, "image/jpeg", thumb.ContentType)
	decoded, _, err := image.Decode(bytes.NewReader(thumb.Data))
	require.NoError(t, err)
	require.Equal(t, 200, decoded.Bounds().Dx())
	require.Equal(t, 100, decoded.Bounds().Dy())
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"payments/2025/abc.png": "image/png",
		"payments/2025/abc.JPG": "image/jpeg",
		"staff/avatar.jpeg":     "image/jpeg",
		"payments/abc.gif":      "image/gif",
		"payments/abc":          "application/octet-stream",
		"payments/abc.html":     "application/octet-stream",
	}
	for key, want := range cases {
		require.Equal(t, want, ContentTypeForKey(key), key)
	}
}
