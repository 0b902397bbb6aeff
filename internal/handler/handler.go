package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fetalscan/internal/config"
	"fetalscan/internal/domain"
	"fetalscan/internal/service"
	"fetalscan/pkg/utils"
)

const formField = "file"

type Handler struct {
	predictions service.PredictionService
	uploads     service.UploadService
	cfg         *config.AppConfig
	log         *zap.Logger
}

func NewHandler(predictions service.PredictionService, uploads service.UploadService, cfg *config.AppConfig, log *zap.Logger) *Handler {
	return &Handler{
		predictions: predictions,
		uploads:     uploads,
		cfg:         cfg,
		log:         log,
	}
}

type ErrorResponse struct {
	Error   string `json:"error" example:"No file uploaded"`
	Success bool   `json:"success" example:"false"`
}

type ConditionsResponse struct {
	Success          bool     `json:"success" example:"true"`
	TargetConditions []string `json:"target_conditions"`
}

type PredictResponse struct {
	Success          bool                     `json:"success" example:"true"`
	Filename         string                   `json:"filename" example:"scan.png"`
	Results          *domain.PredictionResult `json:"results"`
	DiagnosisMessage string                   `json:"diagnosis_message" example:"detected: mild-ventriculomegaly"`
}

type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Success: false})
}

// HealthCheck
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// GetConditions
// @Summary List the conditions the classifier reports on
// @Tags prediction
// @Produce json
// @Success 200 {object} ConditionsResponse
// @Router /api/conditions [get]
func (h *Handler) GetConditions(c *gin.Context) {
	c.JSON(http.StatusOK, ConditionsResponse{
		Success:          true,
		TargetConditions: h.predictions.Conditions(),
	})
}

// Predict
// @Summary Classify an ultrasound image
// @Tags prediction
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PNG or JPEG image"
// @Success 200 {object} PredictResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/predict [post]
func (h *Handler) Predict(c *gin.Context) {
	file, err := c.FormFile(formField)
	if err != nil {
		if isBodyTooLarge(err) {
			respondError(c, http.StatusRequestEntityTooLarge, "File too large. Maximum size is "+humanSize(h.cfg.MaxUploadSize))
			return
		}
		if c.Request.MultipartForm != nil && len(c.Request.MultipartForm.Value[formField]) > 0 {
			// a part without a filename is parsed as a plain form value
			respondError(c, http.StatusBadRequest, "No file selected")
			return
		}
		h.log.Debug("No file in request", zap.Error(err))
		respondError(c, http.StatusBadRequest, "No file uploaded")
		return
	}

	if file.Filename == "" {
		respondError(c, http.StatusBadRequest, "No file selected")
		return
	}

	if !utils.AllowedFile(file.Filename, h.cfg.AllowedFormats) {
		respondError(c, http.StatusBadRequest, "File type not allowed. Allowed types: "+strings.Join(h.cfg.AllowedFormats, ", "))
		return
	}

	src, err := file.Open()
	if err != nil {
		h.log.Error("Failed to open uploaded file", zap.Error(err))
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer src.Close()

	ctx := c.Request.Context()

	upload, err := h.uploads.Save(ctx, file.Filename, src)
	if err != nil {
		h.log.Error("Failed to save upload", zap.String("filename", file.Filename), zap.Error(err))
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}
	defer h.uploads.Release(upload)

	result, err := h.predictions.Predict(ctx, upload.LocalPath)
	if err != nil {
		h.log.Error("Prediction failed",
			zap.String("upload_id", upload.ID),
			zap.String("filename", upload.Filename),
			zap.Error(err))
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	c.JSON(http.StatusOK, PredictResponse{
		Success:          true,
		Filename:         upload.Filename,
		Results:          result,
		DiagnosisMessage: result.DiagnosisMessage,
	})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
