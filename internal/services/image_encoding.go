package services

import (
	"encoding/base64"
	"net/http"
)

// MaxImageBytes caps slip images and the shrine logo. Both are stored inline
// as data URLs inside the shared collections.
const MaxImageBytes = 500 * 1024

var allowedImageTypes = map[string]struct{}{
	"image/png":  {},
	"image/jpeg": {},
}

// EncodeImageDataURL sniffs the image type and returns a base64 data URL.
func EncodeImageDataURL(field string, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fieldError(field, ErrValidation)
	}
	if len(image) > MaxImageBytes {
		return "", fieldError(field, ErrPayloadTooLarge)
	}

	mimeType := http.DetectContentType(image)
	if _, ok := allowedImageTypes[mimeType]; !ok {
		return "", fieldError(field, ErrValidation)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image), nil
}
