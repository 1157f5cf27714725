package gesture

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeModel marshals artifacts to a temp file and returns its path.
func writeModel(t *testing.T, m map[string]any) string {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// tinyModel is a hand-checkable two-feature, two-class model.
func tinyModel() map[string]any {
	return map[string]any{
		"version":       "test-v1",
		"feature_names": []string{"f1", "f2"},
		"scaler": map[string]any{
			"mean":  []float64{0, 0},
			"scale": []float64{1, 1},
		},
		"svm": map[string]any{
			"labels":          []string{"jump", "noise"},
			"gamma":           0.5,
			"support_vectors": [][]float64{{1, 0}, {0, 1}},
			"coef":            [][]float64{{1, -1}, {-1, 1}},
			"intercept":       []float64{0, 0},
		},
		"calibration": map[string]any{"a": 2.0, "b": 0.0},
	}
}

func tinyFeatures() []string { return []string{"f1", "f2"} }

func TestLoadModel_RoundTrip(t *testing.T) {
	t.Parallel()

	c, err := LoadModel(writeModel(t, tinyModel()), tinyFeatures())
	require.NoError(t, err)
	assert.Equal(t, "test-v1", c.Version())
	assert.Equal(t, []string{"jump", "noise"}, c.Labels())
}

func TestLoadModel_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadModel(filepath.Join(t.TempDir(), "nope.json"), tinyFeatures())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelLoad))
}

func TestLoadModel_RejectsBadArtifacts(t *testing.T) {
	t.Parallel()

	mutate := map[string]func(m map[string]any){
		"feature order mismatch": func(m map[string]any) {
			m["feature_names"] = []string{"f2", "f1"}
		},
		"feature count mismatch": func(m map[string]any) {
			m["feature_names"] = []string{"f1"}
		},
		"zero scale": func(m map[string]any) {
			m["scaler"].(map[string]any)["scale"] = []float64{1, 0}
		},
		"missing gamma": func(m map[string]any) {
			m["svm"].(map[string]any)["gamma"] = 0.0
		},
		"ragged coef": func(m map[string]any) {
			m["svm"].(map[string]any)["coef"] = [][]float64{{1}, {-1}}
		},
		"no support vectors": func(m map[string]any) {
			m["svm"].(map[string]any)["support_vectors"] = [][]float64{}
		},
	}

	for name, fn := range mutate {
		fn := fn
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m := tinyModel()
			fn(m)
			_, err := LoadModel(writeModel(t, m), tinyFeatures())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrModelLoad))
		})
	}
}

func TestLoadModel_RejectsCorruptJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadModel(path, tinyFeatures())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelLoad))
}

func TestPredict_KnownDecision(t *testing.T) {
	t.Parallel()

	c, err := LoadModel(writeModel(t, tinyModel()), tinyFeatures())
	require.NoError(t, err)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	res, err := c.Predict(FeatureVector{Values: []float64{1, 0}}, ts)
	require.NoError(t, err)

	// At x=(1,0): K(sv1)=1, K(sv2)=e^-1, so the jump decision is 1-e^-1
	// and confidence is sigmoid(2*(1-e^-1)).
	assert.Equal(t, "jump", res.Label)
	assert.InDelta(t, 0.7798, res.Confidence, 0.001)
	assert.Equal(t, ts, res.Timestamp)

	// The symmetric input flips the winner.
	res, err = c.Predict(FeatureVector{Values: []float64{0, 1}}, ts)
	require.NoError(t, err)
	assert.Equal(t, "noise", res.Label)
}

func TestPredict_IsPure(t *testing.T) {
	t.Parallel()

	c, err := LoadModel(writeModel(t, tinyModel()), tinyFeatures())
	require.NoError(t, err)

	ts := time.Now()
	fv := FeatureVector{Values: []float64{0.3, -0.7}}
	first, err := c.Predict(fv, ts)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		res, err := c.Predict(fv, ts)
		require.NoError(t, err)
		assert.Equal(t, first, res)
	}
}

func TestPredict_DimensionMismatch(t *testing.T) {
	t.Parallel()

	c, err := LoadModel(writeModel(t, tinyModel()), tinyFeatures())
	require.NoError(t, err)

	_, err = c.Predict(FeatureVector{Values: []float64{1}}, time.Now())
	require.Error(t, err)
}

func TestPredict_AppliesScaler(t *testing.T) {
	t.Parallel()

	m := tinyModel()
	m["scaler"] = map[string]any{
		"mean":  []float64{10, 10},
		"scale": []float64{2, 2},
	}
	c, err := LoadModel(writeModel(t, m), tinyFeatures())
	require.NoError(t, err)

	// (12, 10) scales to (1, 0), matching the unscaled known decision.
	res, err := c.Predict(FeatureVector{Values: []float64{12, 10}}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "jump", res.Label)
	assert.InDelta(t, 0.7798, res.Confidence, 0.001)
}
