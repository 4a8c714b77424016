// Package labels loads the classifier category catalog.
package labels

import (
	"errors"
	"io"
	"os"

	"github.com/skinguard/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultHighRisk is the label the reference melanoma model uses for a
// malignant lesion.
const DefaultHighRisk = "Malignant"

var errNoHighRisk = errors.New("label catalog has no high_risk label")

// Default returns the two-category catalog of the reference model.
func Default() *models.LabelCatalog {
	return &models.LabelCatalog{
		HighRisk: DefaultHighRisk,
		Labels: []models.LabelDefinition{
			{Name: "Benign", Description: "No signs of malignancy were detected."},
			{Name: DefaultHighRisk, Description: "Signs of malignancy were detected. Please consult a dermatologist."},
		},
	}
}

// Load parses a YAML catalog file.
func Load(filePath string) (*models.LabelCatalog, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadFromReader(file)
}

// LoadFromReader parses a catalog from an io.Reader. The high-risk label
// does not have to appear in the labels list: the set is open.
func LoadFromReader(r io.Reader) (*models.LabelCatalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var catalog models.LabelCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	if catalog.HighRisk == "" {
		return nil, errNoHighRisk
	}

	return &catalog, nil
}

// LoadOrDefault loads filePath when it is set and exists, else the default
// catalog.
func LoadOrDefault(filePath string) (*models.LabelCatalog, error) {
	if filePath == "" {
		return Default(), nil
	}
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(filePath)
}
