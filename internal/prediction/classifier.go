package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const (
	FormatLogisticRegression = "logistic_regression"
	FormatRemote             = "remote"
)

// Classifier is a trained binary model. PredictProba returns one probability
// per class, ordered [not survived, survived].
type Classifier interface {
	PredictProba(ctx context.Context, x []float64) ([]float64, error)
	NumFeatures() int
	Format() string
}

// LogisticRegression evaluates a fitted binary logistic regression.
type LogisticRegression struct {
	coefficients []float64
	intercept    float64
	// index of the survived class in the fitted class order
	positive int
}

// NewLogisticRegression builds a classifier from fitted parameters. classes is
// the label order of the fit and must be a permutation of {0, 1}.
func NewLogisticRegression(coefficients []float64, intercept float64, classes []int) (*LogisticRegression, error) {
	if len(coefficients) == 0 {
		return nil, errors.New("no coefficients")
	}
	for i, c := range append([]float64{intercept}, coefficients...) {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("parameter %d is not finite", i)
		}
	}

	positive := 1
	switch {
	case len(classes) == 0:
	case len(classes) == 2 && classes[0] == 0 && classes[1] == 1:
	case len(classes) == 2 && classes[0] == 1 && classes[1] == 0:
		positive = 0
	default:
		return nil, fmt.Errorf("classes must be [0, 1], got %v", classes)
	}

	return &LogisticRegression{
		coefficients: coefficients,
		intercept:    intercept,
		positive:     positive,
	}, nil
}

func (m *LogisticRegression) PredictProba(ctx context.Context, x []float64) ([]float64, error) {
	if len(x) != len(m.coefficients) {
		return nil, fmt.Errorf("expected %d features, got %d", len(m.coefficients), len(x))
	}

	z := m.intercept
	for i, v := range x {
		z += m.coefficients[i] * v
	}

	p := sigmoid(z)
	if m.positive == 0 {
		// the fit's first column is the survived class, so its decision
		// function scores class 0 (not survived)
		return []float64{p, 1 - p}, nil
	}
	return []float64{1 - p, p}, nil
}

func (m *LogisticRegression) NumFeatures() int {
	return len(m.coefficients)
}

func (m *LogisticRegression) Format() string {
	return FormatLogisticRegression
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
