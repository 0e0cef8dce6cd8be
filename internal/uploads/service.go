package uploads

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/vatavaran/vatavaran-backend/pkg/config"
	pkgerrors "github.com/vatavaran/vatavaran-backend/pkg/errors"
	"github.com/vatavaran/vatavaran-backend/pkg/logger"
	"github.com/vatavaran/vatavaran-backend/pkg/storage/s3"
)

const (
	defaultFolder   = "vatavaran/pickups"
	bytesPerMB      = 1 << 20
	defaultMaxBytes = 5 * bytesPerMB
)

type objectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (*s3.Object, error)
}

// Result is returned to the client after a successful upload.
type Result struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// Service stores pickup photos.
type Service interface {
	UploadImage(ctx context.Context, body io.Reader) (*Result, error)
	MaxBytes() int64
}

type service struct {
	store    objectStore
	folder   string
	maxBytes int64
	logg     *logger.Logger
}

// NewService builds the upload service. A nil store yields a service that
// reports uploads as unavailable.
func NewService(store objectStore, cfg config.StorageConfig, logg *logger.Logger) Service {
	maxBytes := int64(cfg.MaxUploadMB) * bytesPerMB
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	folder := strings.Trim(strings.TrimSpace(cfg.Folder), "/")
	if folder == "" {
		folder = defaultFolder
	}
	return &service{store: store, folder: folder, maxBytes: maxBytes, logg: logg}
}

func (s *service) MaxBytes() int64 {
	return s.maxBytes
}

func (s *service) UploadImage(ctx context.Context, body io.Reader) (*Result, error) {
	if s.store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "image storage not configured")
	}
	if body == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is required")
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file too large").
			WithDetails(map[string]any{"maxBytes": s.maxBytes})
	}

	detected := mimetype.Detect(data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only image uploads are allowed").
			WithDetails(map[string]any{"contentType": detected.String()})
	}

	key := fmt.Sprintf("%s/%s%s", s.folder, uuid.NewString(), detected.Extension())
	contentType := strings.SplitN(detected.String(), ";", 2)[0]
	obj, err := s.store.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "image upload failed")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"object_key": obj.Key,
			"size_bytes": len(data),
			"mime":       contentType,
		}), "upload.stored")
	}

	return &Result{URL: obj.URL, Key: obj.Key, ContentType: contentType, SizeBytes: int64(len(data))}, nil
}
