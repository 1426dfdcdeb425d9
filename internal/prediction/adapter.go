package prediction

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State string

const (
	StateUnloaded State = "unloaded"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// probabilityTolerance bounds how far the two class probabilities may sum from 1.
const probabilityTolerance = 1e-6

// Result is the survival estimate for one passenger.
type Result struct {
	SurvivalProbability float64 `json:"survival_probability"`
	DeathProbability    float64 `json:"death_probability"`
	Survived            bool    `json:"survived"`
	ModelFormat         string  `json:"model_format"`
	ModelVersion        string  `json:"model_version,omitempty"`
}

func (r Result) Verdict() string {
	if r.Survived {
		return "Likely to Survive"
	}
	return "Unlikely to Survive"
}

// Info is a snapshot of the adapter for status endpoints.
type Info struct {
	State    State    `json:"state"`
	Path     string   `json:"path,omitempty"`
	Metadata Metadata `json:"metadata"`
	Error    string   `json:"error,omitempty"`
}

// Adapter owns the classifier lifecycle: unloaded until first use, then ready
// or failed for the rest of the process.
type Adapter struct {
	path   string
	load   func() (Classifier, Metadata, error)
	logger *logrus.Logger

	once       sync.Once
	mu         sync.RWMutex
	state      State
	classifier Classifier
	metadata   Metadata
	loadErr    error
}

// NewAdapter loads the artifact at path on first use.
func NewAdapter(path string, logger *logrus.Logger) *Adapter {
	return &Adapter{
		path:   path,
		logger: logger,
		state:  StateUnloaded,
		load: func() (Classifier, Metadata, error) {
			return LoadArtifact(path, logger)
		},
	}
}

// NewAdapterWithClassifier wraps an already built classifier.
func NewAdapterWithClassifier(classifier Classifier, metadata Metadata, logger *logrus.Logger) *Adapter {
	if metadata.Format == "" {
		metadata.Format = classifier.Format()
	}
	if metadata.FeatureNames == nil {
		metadata.FeatureNames = FeatureNames
	}
	return &Adapter{
		logger: logger,
		state:  StateUnloaded,
		load: func() (Classifier, Metadata, error) {
			return classifier, metadata, nil
		},
	}
}

// Load performs the one-time load and returns its error, if any. Later calls
// return the same outcome without touching the artifact again.
func (a *Adapter) Load() error {
	a.once.Do(func() {
		start := time.Now()
		classifier, metadata, err := a.load()

		a.mu.Lock()
		defer a.mu.Unlock()

		if err != nil {
			a.state = StateFailed
			a.loadErr = err
			a.logger.WithError(err).WithField("path", a.path).Error("Failed to load prediction model")
			return
		}

		a.state = StateReady
		a.classifier = classifier
		a.metadata = metadata
		a.logger.WithFields(logrus.Fields{
			"path":     a.path,
			"format":   metadata.Format,
			"version":  metadata.Version,
			"duration": time.Since(start).String(),
		}).Info("Prediction model loaded")
	})

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loadErr
}

func (a *Adapter) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Adapter) Info() Info {
	a.mu.RLock()
	defer a.mu.RUnlock()

	info := Info{
		State:    a.state,
		Path:     a.path,
		Metadata: a.metadata,
	}
	if a.loadErr != nil {
		info.Error = a.loadErr.Error()
	}
	return info
}

// Predict validates f, asks the classifier once and checks the output is a
// probability distribution over the two classes.
func (a *Adapter) Predict(ctx context.Context, f Features) (Result, error) {
	if err := a.Load(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}

	if err := f.Validate(); err != nil {
		return Result{}, err
	}

	a.mu.RLock()
	classifier, metadata := a.classifier, a.metadata
	a.mu.RUnlock()

	probabilities, err := classifier.PredictProba(ctx, f.Vector())
	if err != nil {
		return Result{}, &PredictionError{Reason: "classifier call failed", Err: err}
	}

	if err := checkProbabilities(probabilities); err != nil {
		a.logger.WithFields(logrus.Fields{
			"probabilities": probabilities,
			"format":        metadata.Format,
		}).Warn("Classifier returned malformed probabilities")
		return Result{}, err
	}

	return Result{
		SurvivalProbability: probabilities[1],
		DeathProbability:    probabilities[0],
		Survived:            probabilities[1] > 0.5,
		ModelFormat:         metadata.Format,
		ModelVersion:        metadata.Version,
	}, nil
}

func checkProbabilities(p []float64) error {
	if len(p) != 2 {
		return &PredictionError{Reason: fmt.Sprintf("expected 2 class probabilities, got %d", len(p))}
	}
	for _, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return &PredictionError{Reason: fmt.Sprintf("probability %v outside [0, 1]", v)}
		}
	}
	if sum := p[0] + p[1]; math.Abs(sum-1) > probabilityTolerance {
		return &PredictionError{Reason: fmt.Sprintf("probabilities sum to %v, not 1", sum)}
	}
	return nil
}
