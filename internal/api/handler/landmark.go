package handler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/facemark/internal/domain"
	"github.com/saturnino-fabrica-de-software/facemark/internal/imaging"
)

const (
	defaultMaxImageSize = 10 * 1024 * 1024 // 10MB
	formField           = "file"
)

// LandmarkProcessor interface for the service
type LandmarkProcessor interface {
	Process(ctx context.Context, img image.Image) (*domain.ProcessResult, error)
}

// LandmarkHandler handles landmark detection requests
type LandmarkHandler struct {
	service      LandmarkProcessor
	maxImageSize int64
	logger       *slog.Logger
}

// NewLandmarkHandler creates a new LandmarkHandler. maxImageSize <= 0 uses 10MB.
func NewLandmarkHandler(service LandmarkProcessor, maxImageSize int64, logger *slog.Logger) *LandmarkHandler {
	if maxImageSize <= 0 {
		maxImageSize = defaultMaxImageSize
	}
	return &LandmarkHandler{
		service:      service,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// ProcessImageResponse response for process-image endpoint
type ProcessImageResponse struct {
	Image     string                 `json:"image"`
	Landmarks []domain.FaceLandmarks `json:"landmarks"`
}

// ProcessImage POST /process-image - detect landmarks and return an annotated image
func (h *LandmarkHandler) ProcessImage(c *fiber.Ctx) error {
	// 1. Extract the upload
	file, err := c.FormFile(formField)
	if err != nil {
		return domain.ErrBadRequest.WithError(fmt.Errorf("%s is required", formField))
	}

	if file.Size > h.maxImageSize {
		return domain.ErrImageTooLarge
	}

	// 2. Validate the declared type
	if !imaging.IsImageType(file.Header.Get(fiber.HeaderContentType)) {
		return domain.ErrNotAnImage
	}

	f, err := file.Open()
	if err != nil {
		return domain.ErrInternal.WithError(fmt.Errorf("open upload: %w", err))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxImageSize+1))
	if err != nil {
		return domain.ErrInternal.WithError(fmt.Errorf("read upload: %w", err))
	}
	if int64(len(data)) > h.maxImageSize {
		return domain.ErrImageTooLarge
	}

	// 3. Check the bytes agree with the declared type, then decode
	if sniffed := imaging.Sniff(data); !imaging.IsImageType(sniffed) {
		return domain.ErrInvalidImage.WithError(fmt.Errorf("content is %s", sniffed))
	}
	img, format, err := imaging.Decode(data)
	if err != nil {
		return err
	}

	// 4. Detect and render
	result, err := h.service.Process(c.UserContext(), img)
	if err != nil {
		var appErr *domain.AppError
		if !errors.As(err, &appErr) {
			err = domain.ErrInternal.WithError(err)
		}
		return err
	}

	h.logger.Debug("image processed",
		slog.String("format", format),
		slog.Int("faces", len(result.Landmarks)),
		slog.Any("request_id", c.Locals("requestid")),
	)

	return c.JSON(ProcessImageResponse{
		Image:     result.Image,
		Landmarks: result.Landmarks,
	})
}
