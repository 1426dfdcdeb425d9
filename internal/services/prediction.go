package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/demodash/backend/internal/models"
	"github.com/demodash/backend/internal/prediction"
)

type PredictionService struct {
	adapter *prediction.Adapter
	logger  *logrus.Logger
}

func NewPredictionService(adapter *prediction.Adapter, logger *logrus.Logger) *PredictionService {
	return &PredictionService{
		adapter: adapter,
		logger:  logger,
	}
}

// Warm loads the model ahead of the first request.
func (s *PredictionService) Warm() error {
	return s.adapter.Load()
}

// Predict encodes the form request and returns the display-ready response.
func (s *PredictionService) Predict(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, prediction.Features, error) {
	features, err := req.Features()
	if err != nil {
		return nil, prediction.Features{}, err
	}

	result, err := s.adapter.Predict(ctx, features)
	if err != nil {
		return nil, features, err
	}

	return &models.PredictionResponse{
		RequestID:       uuid.NewString(),
		Result:          result,
		Verdict:         result.Verdict(),
		SurvivalPercent: prediction.FormatPercent(result.SurvivalProbability),
		DeathPercent:    prediction.FormatPercent(result.DeathProbability),
		Features:        prediction.DescribeFeatures(features),
	}, features, nil
}

func (s *PredictionService) ModelInfo() *models.ModelInfoResponse {
	return &models.ModelInfoResponse{
		Model:    s.adapter.Info(),
		Features: prediction.FeatureDocs(),
		Defaults: prediction.DefaultFeatures(),
	}
}

func (s *PredictionService) State() prediction.State {
	return s.adapter.State()
}
