// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recall

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/recall-engine/pkg/types"
)

// RecallFile is the on-disk record of a recall request and its results,
// so a recall can be reviewed later without querying the corpus again.
type RecallFile struct {
	Request     types.RecallRequest `yaml:"request"`
	Results     []types.Selection   `yaml:"results"`
	Diagnostics types.Diagnostics   `yaml:"diagnostics"`
	Timestamp   time.Time           `yaml:"timestamp"`
}

// WriteRecallFile saves a request and its response to a YAML file.
func WriteRecallFile(path string, req types.RecallRequest, resp types.RecallResponse) error {
	rf := RecallFile{
		Request:     req,
		Results:     resp.Results,
		Diagnostics: resp.Diagnostics,
		Timestamp:   time.Now().UTC(),
	}
	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling recall file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRecallFile loads a previously saved recall file from disk.
func ReadRecallFile(path string) (*RecallFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recall file: %w", err)
	}
	var rf RecallFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing recall file: %w", err)
	}
	return &rf, nil
}
