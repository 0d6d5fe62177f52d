package avatar

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-movie-server/users"
	"github.com/pkg/errors"
)

// ObjectStore stores a public object and returns its URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Upload stores a user-supplied image.
type Upload struct {
	objects ObjectStore
	newID   func() string
}

var _ Strategy = (*Upload)(nil)

func NewUpload(objects ObjectStore) *Upload {
	return &Upload{
		objects: objects,
		newID:   func() string { return uuid.New().String() },
	}
}

func (u *Upload) Name() string {
	return SourceUpload
}

func (u *Upload) Resolve(ctx context.Context, req Request) (*Avatar, error) {
	if req.Upload == "" {
		return nil, nil
	}
	if u.objects == nil {
		return nil, errors.New("no object store configured")
	}
	img, err := ParseDataURL(req.Upload)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("avatars/%s/%s.%s", users.CanonicalUsername(req.Username), u.newID(), img.Extension)
	url, err := u.objects.Put(ctx, key, img.ContentType, img.Data)
	if err != nil {
		return nil, errors.Wrap(err, "[avatar.Upload] store object")
	}
	return &Avatar{URL: url, Path: key, Source: SourceUpload}, nil
}
