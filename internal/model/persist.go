package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact bundles the trained ensemble with its evaluation for storage.
type Artifact struct {
	Model      *GBRT      `json:"model"`
	Train      Evaluation `json:"train"`
	Test       Evaluation `json:"test"`
	TrainedAt  string     `json:"trained_at"`
	TableHash  string     `json:"table,omitempty"`
	TopFeature []string   `json:"top_features"`
}

// Save writes the artifact as indented JSON, creating parent directories.
func (a *Artifact) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// LoadArtifact reads a stored model artifact.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if a.Model == nil || len(a.Model.Trees) == 0 {
		return nil, fmt.Errorf("model artifact %s holds no trees", path)
	}
	return &a, nil
}
