package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"fetalscan/internal/domain"
)

type Inferer interface {
	Infer(ctx context.Context, imagePath, modelID string) (*domain.InferenceResponse, error)
}

type PredictionService interface {
	Predict(ctx context.Context, imagePath string) (*domain.PredictionResult, error)
	Conditions() []domain.Condition
}

type predictionService struct {
	inferer Inferer
	modelID string
	log     *zap.Logger
}

func NewPredictionService(inferer Inferer, modelID string, log *zap.Logger) PredictionService {
	return &predictionService{
		inferer: inferer,
		modelID: modelID,
		log:     log,
	}
}

func (s *predictionService) Conditions() []domain.Condition {
	return domain.TargetConditions()
}

func (s *predictionService) Predict(ctx context.Context, imagePath string) (*domain.PredictionResult, error) {
	resp, err := s.inferer.Infer(ctx, imagePath, s.modelID)
	if err != nil {
		s.log.Error("Error during inference",
			zap.String("model_id", s.modelID),
			zap.String("path", imagePath),
			zap.Error(err))
		return nil, &domain.InferenceError{ModelID: s.modelID, Err: err}
	}

	result := FilterPredictions(resp)

	s.log.Info("Prediction completed",
		zap.String("model_id", s.modelID),
		zap.String("inference_id", resp.InferenceID),
		zap.Strings("predicted_classes", result.PredictedClasses),
		zap.String("diagnosis", result.DiagnosisMessage))

	return result, nil
}

// FilterPredictions restricts a raw response to the target conditions and
// derives the diagnosis message. A "normal" prediction short-circuits the
// class filtering and always yields the no-abnormalities message.
func FilterPredictions(resp *domain.InferenceResponse) *domain.PredictionResult {
	result := &domain.PredictionResult{
		InferenceID:      resp.InferenceID,
		Time:             resp.Time,
		Image:            resp.Image,
		Predictions:      make(map[string]domain.ClassScore),
		PredictedClasses: resp.PredictedClasses,
		Extra:            resp.Extra,
	}

	for _, condition := range domain.TargetConditions() {
		if score, ok := resp.Predictions[condition]; ok {
			result.Predictions[condition] = score
		}
	}

	if containsString(resp.PredictedClasses, domain.ConditionNormal) {
		result.DiagnosisMessage = domain.MessageNoAbnormalities
		return result
	}

	filtered := make([]string, 0, len(resp.PredictedClasses))
	for _, cls := range resp.PredictedClasses {
		if domain.IsTargetCondition(cls) {
			filtered = append(filtered, cls)
		}
	}
	result.PredictedClasses = filtered

	if len(filtered) > 0 {
		result.DiagnosisMessage = domain.MessageDetectedPrefix + strings.Join(filtered, ", ")
	} else {
		result.DiagnosisMessage = domain.MessageNoAbnormalities
	}

	return result
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
