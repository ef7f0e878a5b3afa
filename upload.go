package mural

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"

	// Register the decoders for the upload formats we accept.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// DecodeUpload validates an uploaded reference image and returns it as an
// embeddable data URL. Malformed or unsupported bytes return an error; the
// caller logs it and proceeds without a reference node.
func DecodeUpload(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("decode upload: empty file")
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("decode upload: %w", err)
	} else if format == "" {
		return "", fmt.Errorf("decode upload: unknown image format")
	}
	return DataURL(data), nil
}

// DataURL wraps raw image bytes in a data URL, sniffing the media type.
func DataURL(data []byte) string {
	mime := http.DetectContentType(data)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL extracts the raw bytes from a data URL produced by DataURL.
// Non-data URLs (or anything else) return an error.
func DecodeDataURL(url string) ([]byte, error) {
	const scheme = "data:"
	if len(url) < len(scheme) || url[:len(scheme)] != scheme {
		return nil, fmt.Errorf("decode data url: not a data url")
	}
	i := bytes.IndexByte([]byte(url), ',')
	if i < 0 {
		return nil, fmt.Errorf("decode data url: missing payload")
	}
	raw, err := base64.StdEncoding.DecodeString(url[i+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return raw, nil
}
