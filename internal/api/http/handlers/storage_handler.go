package handlers

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/storage"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// StorageHandler accepts public image uploads and serves stored blobs.
type StorageHandler struct {
	store    storage.BlobStore
	maxBytes int64
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// NewStorageHandler creates a handler.
func NewStorageHandler(store storage.BlobStore, maxBytes int64, logger *zap.Logger, metrics *observability.Metrics) *StorageHandler {
	if maxBytes <= 0 {
		maxBytes = storage.MaxImageBytes
	}
	return &StorageHandler{store: store, maxBytes: maxBytes, logger: logger, metrics: metrics, now: time.Now}
}

// Upload POST /storage/:bucket. Multipart field "file".
func (h *StorageHandler) Upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("A file is required", nil)
	}
	name := header.Filename

	if header.Size > h.maxBytes {
		h.metrics.RecordUpload("rejected")
		return apperrors.NewValidationError(storage.TooLarge(name, h.maxBytes).Error(), nil)
	}

	file, err := header.Open()
	if err != nil {
		return apperrors.NewUploadError(name, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		return apperrors.NewUploadError(name, err)
	}

	// The declared part type is not trusted; content is sniffed.
	if err := storage.CheckImage(name, "", data, h.maxBytes); err != nil {
		h.metrics.RecordUpload("rejected")
		return apperrors.NewValidationError(err.Error(), nil)
	}

	bucket := utils.CopyString(c.Params("bucket"))
	object, err := h.store.Upload(c.UserContext(), bucket, storage.ObjectName(name, data, h.now()), data)
	if err != nil {
		if errors.Is(err, storage.ErrBucketNotFound) {
			return apperrors.NewNotFound("Bucket", nil)
		}
		h.metrics.RecordUpload("failed")
		return apperrors.NewUploadError(name, err)
	}

	h.metrics.RecordUpload("stored")
	h.logger.Info("blob stored",
		zap.String("bucket", object.Bucket),
		zap.String("name", object.Name),
		zap.Int64("size", object.Size))

	return c.Status(fiber.StatusCreated).JSON(dto.UploadResponse{
		Path: object.Name,
		URL:  h.store.PublicURL(object.Bucket, object.Name),
	})
}

// Download GET /storage/:bucket/:name. Public.
func (h *StorageHandler) Download(c *fiber.Ctx) error {
	object, data, err := h.store.Get(c.UserContext(), utils.CopyString(c.Params("bucket")), utils.CopyString(c.Params("name")))
	if err != nil {
		if errors.Is(err, storage.ErrBucketNotFound) || errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return apperrors.NewNotFound("Object", nil)
		}
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, object.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderContentSecurityPolicy, "default-src 'none'; sandbox")
	return c.Send(data)
}
