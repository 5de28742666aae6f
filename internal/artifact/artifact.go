// Package artifact persists a fitted scaler and classifier as one JSON
// document. The two are only ever written and read together.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"parking-occupancy/internal/features"
	"parking-occupancy/internal/scaler"
	"parking-occupancy/internal/svm"
)

var (
	ErrArtifactMissing = errors.New("model artifact not found")
	ErrArtifactCorrupt = errors.New("model artifact is corrupt")
)

// Artifact is the trained model bundle.
type Artifact struct {
	Model  *svm.SVC               `json:"model"`
	Scaler *scaler.StandardScaler `json:"scaler"`
}

// Validate checks both parts are present and agree on the feature count.
func (a *Artifact) Validate() error {
	if a.Model == nil {
		return errors.New("missing model")
	}
	if a.Scaler == nil {
		return errors.New("missing scaler")
	}
	if err := a.Model.Validate(); err != nil {
		return err
	}
	if !a.Scaler.Fitted() {
		return scaler.ErrNotFitted
	}
	if a.Scaler.Dim() != a.Model.NFeatures {
		return fmt.Errorf("scaler has %d features, model has %d", a.Scaler.Dim(), a.Model.NFeatures)
	}
	return nil
}

// Save writes the artifact to a temporary file next to path and renames it
// into place, so readers see either the old or the new artifact.
func Save(path string, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("refusing to save artifact: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, path, err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArtifactCorrupt, path, err)
	}
	return &a, nil
}

// Predict classifies one raw feature vector.
func (a *Artifact) Predict(v features.Vector) (int, error) {
	scaled, err := a.Scaler.TransformVector(v.Slice())
	if err != nil {
		return 0, err
	}
	return a.Model.PredictOne(scaled)
}

// PredictProba returns the probability that a raw feature vector is occupied.
func (a *Artifact) PredictProba(v features.Vector) (float64, error) {
	scaled, err := a.Scaler.TransformVector(v.Slice())
	if err != nil {
		return 0, err
	}
	return a.Model.ProbaOne(scaled)
}
