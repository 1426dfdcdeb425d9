package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Artifact is the on-disk model description. Format selects which fields apply.
type Artifact struct {
	Format       string   `json:"format"`
	Version      string   `json:"version,omitempty"`
	FeatureNames []string `json:"feature_names,omitempty"`

	// logistic_regression
	Coefficients []float64 `json:"coefficients,omitempty"`
	Intercept    float64   `json:"intercept,omitempty"`
	Classes      []int     `json:"classes,omitempty"`

	// remote
	Endpoint       string  `json:"endpoint,omitempty"`
	APIKeyEnv      string  `json:"api_key_env,omitempty"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty"`
}

// Metadata describes a loaded model.
type Metadata struct {
	Format       string   `json:"format"`
	Version      string   `json:"version,omitempty"`
	FeatureNames []string `json:"feature_names"`
}

// LoadArtifact reads and builds the classifier at path. Every failure is a *ModelLoadError.
func LoadArtifact(path string, logger *logrus.Logger) (Classifier, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, &ModelLoadError{Path: path, Err: err}
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, Metadata{}, &ModelLoadError{Path: path, Err: fmt.Errorf("corrupt artifact: %w", err)}
	}

	classifier, err := artifact.Build(logger)
	if err != nil {
		return nil, Metadata{}, &ModelLoadError{Path: path, Err: err}
	}

	return classifier, Metadata{
		Format:       classifier.Format(),
		Version:      artifact.Version,
		FeatureNames: FeatureNames,
	}, nil
}

// Build turns the artifact into a classifier and checks it accepts the four passenger features.
func (a Artifact) Build(logger *logrus.Logger) (Classifier, error) {
	if len(a.FeatureNames) > 0 && !sameNames(a.FeatureNames, FeatureNames) {
		return nil, fmt.Errorf("model expects features %v, want %v", a.FeatureNames, FeatureNames)
	}

	var classifier Classifier
	switch a.Format {
	case FormatLogisticRegression:
		lr, err := NewLogisticRegression(a.Coefficients, a.Intercept, a.Classes)
		if err != nil {
			return nil, fmt.Errorf("invalid logistic regression: %w", err)
		}
		classifier = lr
	case FormatRemote:
		if a.Endpoint == "" {
			return nil, errors.New("remote model requires an endpoint")
		}
		apiKey := ""
		if a.APIKeyEnv != "" {
			apiKey = os.Getenv(a.APIKeyEnv)
		}
		timeout := time.Duration(a.TimeoutSeconds * float64(time.Second))
		classifier = NewRemoteClassifier(a.Endpoint, apiKey, timeout, logger)
	case "":
		return nil, errors.New("artifact has no format")
	default:
		return nil, fmt.Errorf("unknown model format %q", a.Format)
	}

	if n := classifier.NumFeatures(); n != len(FeatureNames) {
		return nil, fmt.Errorf("model takes %d features, want %d", n, len(FeatureNames))
	}
	return classifier, nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
