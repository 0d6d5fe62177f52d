package avatar

import (
	"encoding/base64"
	"regexp"
	"strings"

	apperrors "github.com/jrsteele09/go-movie-server/internal/errors"
	"github.com/pkg/errors"
)

const MaxUploadSize = 2 << 20

var dataURLPattern = regexp.MustCompile(`^data:(image/(?:png|jpeg|jpg|webp|gif));base64,([A-Za-z0-9+/=\s]+)$`)

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Image is a decoded upload.
type Image struct {
	ContentType string
	Extension   string
	Data        []byte
}

// ParseDataURL decodes a base64 image data URL of at most MaxUploadSize bytes.
func ParseDataURL(dataURL string) (*Image, error) {
	m := dataURLPattern.FindStringSubmatch(strings.TrimSpace(dataURL))
	if m == nil {
		return nil, errors.Wrap(apperrors.ErrInvalidAvatarData, "unsupported data URL")
	}
	contentType, payload := m[1], strings.Join(strings.Fields(m[2]), "")
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxUploadSize+2 {
		return nil, errors.Wrap(apperrors.ErrInvalidAvatarData, "image too large")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidAvatarData, err.Error())
	}
	if len(data) == 0 {
		return nil, errors.Wrap(apperrors.ErrInvalidAvatarData, "empty image")
	}
	if len(data) > MaxUploadSize {
		return nil, errors.Wrap(apperrors.ErrInvalidAvatarData, "image too large")
	}
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}
	return &Image{
		ContentType: contentType,
		Extension:   extensions[contentType],
		Data:        data,
	}, nil
}
