package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StageManifest overrides pass_threshold_default on a per-stage basis, per
// the decision that pass_threshold is a per-stage-manifest value rather
// than a single hard-coded constant. Grounded on the teacher's
// yamlPipelineSpec (internal/jobs/pipeline/learning_build/spec.go), trimmed
// to the one field this domain needs per stage.
type StageManifest struct {
	Stages []StageOverride `yaml:"stages"`
}

// StageOverride names one stage's non-default pass threshold.
type StageOverride struct {
	Name          string `yaml:"name"`
	PassThreshold int    `yaml:"pass_threshold"`
}

// LoadStageManifest reads a YAML manifest of per-stage threshold
// overrides. A missing path is not an error -- it means every stage uses
// pass_threshold_default.
func LoadStageManifest(path string) (map[string]int, error) {
	if path == "" {
		return map[string]int{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("config: reading stage manifest %s: %w", path, err)
	}

	var spec StageManifest
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return nil, fmt.Errorf("config: parsing stage manifest %s: %w", path, err)
	}

	thresholds := make(map[string]int, len(spec.Stages))
	for _, s := range spec.Stages {
		if s.Name == "" {
			continue
		}
		thresholds[s.Name] = s.PassThreshold
	}
	return thresholds, nil
}
