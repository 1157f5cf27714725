package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"
)

// ErrModelLoad wraps any failure to load classifier artifacts. It is
// non-fatal at the engine level: the engine falls back to reflex-only mode.
var ErrModelLoad = errors.New("model load failed")

// modelArtifacts is the on-disk JSON layout of a trained model: a per-feature
// linear rescaling followed by a one-vs-rest RBF-kernel margin classifier
// with logistic confidence calibration.
type modelArtifacts struct {
	Version      string   `json:"version"`
	FeatureNames []string `json:"feature_names"`
	Scaler       struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	} `json:"scaler"`
	SVM struct {
		Labels         []string    `json:"labels"`
		Gamma          float64     `json:"gamma"`
		SupportVectors [][]float64 `json:"support_vectors"`
		Coef           [][]float64 `json:"coef"`
		Intercept      []float64   `json:"intercept"`
	} `json:"svm"`
	Calibration struct {
		A float64 `json:"a"`
		B float64 `json:"b"`
	} `json:"calibration"`
}

// GestureClassifier wraps pre-trained scaling and classification parameters.
// Predict is pure: no state is mutated at inference time, so concurrent calls
// are safe.
type GestureClassifier struct {
	version        string
	labels         []string
	gamma          float64
	mean, scale    []float64
	supportVectors [][]float64
	coef           [][]float64
	intercept      []float64
	calibA, calibB float64
}

// LoadModel reads classifier artifacts from path and validates them against
// the expected feature ordering. Any error wraps ErrModelLoad; callers
// degrade to reflex-only mode rather than failing.
func LoadModel(path string, wantFeatures []string) (*GestureClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrModelLoad, path, err)
	}

	var m modelArtifacts
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrModelLoad, path, err)
	}

	// The feature ordering is a frozen contract between extractor and model.
	// Any drift means the model was trained against a different extractor
	// version and its predictions would be garbage.
	if len(m.FeatureNames) != len(wantFeatures) {
		return nil, fmt.Errorf("%w: model has %d features, extractor produces %d",
			ErrModelLoad, len(m.FeatureNames), len(wantFeatures))
	}
	for i, name := range m.FeatureNames {
		if name != wantFeatures[i] {
			return nil, fmt.Errorf("%w: feature order mismatch at index %d: model %q, extractor %q",
				ErrModelLoad, i, name, wantFeatures[i])
		}
	}

	dims := len(m.FeatureNames)
	if len(m.Scaler.Mean) != dims || len(m.Scaler.Scale) != dims {
		return nil, fmt.Errorf("%w: scaler dimensions do not match %d features", ErrModelLoad, dims)
	}
	for i, s := range m.Scaler.Scale {
		if s == 0 {
			return nil, fmt.Errorf("%w: zero scale for feature %q", ErrModelLoad, m.FeatureNames[i])
		}
	}
	if len(m.SVM.Labels) == 0 {
		return nil, fmt.Errorf("%w: no class labels", ErrModelLoad)
	}
	if len(m.SVM.SupportVectors) == 0 {
		return nil, fmt.Errorf("%w: no support vectors", ErrModelLoad)
	}
	for i, sv := range m.SVM.SupportVectors {
		if len(sv) != dims {
			return nil, fmt.Errorf("%w: support vector %d has %d dims, want %d", ErrModelLoad, i, len(sv), dims)
		}
	}
	if len(m.SVM.Coef) != len(m.SVM.Labels) || len(m.SVM.Intercept) != len(m.SVM.Labels) {
		return nil, fmt.Errorf("%w: coefficient rows must match %d labels", ErrModelLoad, len(m.SVM.Labels))
	}
	for i, row := range m.SVM.Coef {
		if len(row) != len(m.SVM.SupportVectors) {
			return nil, fmt.Errorf("%w: coef row %d has %d entries, want %d",
				ErrModelLoad, i, len(row), len(m.SVM.SupportVectors))
		}
	}
	if m.SVM.Gamma <= 0 {
		return nil, fmt.Errorf("%w: gamma must be positive, got %v", ErrModelLoad, m.SVM.Gamma)
	}

	return &GestureClassifier{
		version:        m.Version,
		labels:         m.SVM.Labels,
		gamma:          m.SVM.Gamma,
		mean:           m.Scaler.Mean,
		scale:          m.Scaler.Scale,
		supportVectors: m.SVM.SupportVectors,
		coef:           m.SVM.Coef,
		intercept:      m.SVM.Intercept,
		calibA:         m.Calibration.A,
		calibB:         m.Calibration.B,
	}, nil
}

// Version returns the model version string from the artifacts.
func (c *GestureClassifier) Version() string { return c.version }

// Labels returns the class labels the model can produce.
func (c *GestureClassifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Predict scales the feature vector and evaluates the one-vs-rest decision
// functions, returning the winning label with a calibrated confidence in
// [0, 1].
func (c *GestureClassifier) Predict(fv FeatureVector, ts time.Time) (ClassificationResult, error) {
	if len(fv.Values) != len(c.mean) {
		return ClassificationResult{}, fmt.Errorf("feature vector has %d values, model expects %d",
			len(fv.Values), len(c.mean))
	}

	scaled := make([]float64, len(fv.Values))
	for i, v := range fv.Values {
		scaled[i] = (v - c.mean[i]) / c.scale[i]
	}

	// Kernel evaluations are shared across all one-vs-rest rows.
	kernels := make([]float64, len(c.supportVectors))
	for i, sv := range c.supportVectors {
		kernels[i] = rbfKernel(sv, scaled, c.gamma)
	}

	bestIdx := 0
	bestDecision := math.Inf(-1)
	for l := range c.labels {
		d := c.intercept[l]
		for i, k := range kernels {
			d += c.coef[l][i] * k
		}
		if d > bestDecision {
			bestDecision = d
			bestIdx = l
		}
	}

	return ClassificationResult{
		Label:      c.labels[bestIdx],
		Confidence: sigmoid(c.calibA*bestDecision + c.calibB),
		Timestamp:  ts,
	}, nil
}

// rbfKernel computes exp(-gamma * ||a-b||²).
func rbfKernel(a, b []float64, gamma float64) float64 {
	var sq float64
	for i := range a {
		d := a[i] - b[i]
		sq += d * d
	}
	return math.Exp(-gamma * sq)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
