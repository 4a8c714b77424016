package models

// LabelCatalog is the open set of categories a classifier may return.
// Exactly one label is designated high-risk.
type LabelCatalog struct {
	HighRisk string            `yaml:"high_risk" json:"highRisk"`
	Labels   []LabelDefinition `yaml:"labels" json:"labels"`
}

// LabelDefinition describes one category.
type LabelDefinition struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Describe returns the description for a label, or "" when the label is
// not in the catalog.
func (c *LabelCatalog) Describe(label string) string {
	for _, l := range c.Labels {
		if l.Name == label {
			return l.Description
		}
	}
	return ""
}
