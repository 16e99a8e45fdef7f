package sheet

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/vendor-portal/internal/normalize"
)

// Overrides supplements the CLAF roster with locally maintained requirements
// that the upstream export does not carry. Qualification staff edit the YAML
// file by hand; categories are matched on normalized display form.
type Overrides struct {
	// Always lists documents required of every category.
	Always []string `yaml:"always"`
	// Categories maps a category name to extra required documents.
	Categories map[string][]string `yaml:"categories"`
}

// LoadOverrides reads a roster overrides YAML file. A missing path is a
// normal outcome and yields empty overrides.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Overrides{}, nil
		}
		return nil, eris.Wrapf(err, "sheet: read overrides %s", path)
	}

	var wrapper struct {
		Roster Overrides `yaml:"roster"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "sheet: parse overrides")
	}
	return &wrapper.Roster, nil
}

// Apply merges the overrides into a requirement list for the given category,
// deduplicating by normalized display form while preserving order.
func (o *Overrides) Apply(category string, docs []string) []string {
	if o == nil {
		return docs
	}
	seen := make(map[string]struct{}, len(docs))
	out := make([]string, 0, len(docs))
	add := func(doc string) {
		display := normalize.Display(doc)
		if display == "" {
			return
		}
		if _, dup := seen[display]; dup {
			return
		}
		seen[display] = struct{}{}
		out = append(out, doc)
	}
	for _, d := range docs {
		add(d)
	}
	for _, d := range o.Always {
		add(d)
	}
	target := normalize.Display(category)
	for name, extra := range o.Categories {
		if normalize.Display(name) != target {
			continue
		}
		for _, d := range extra {
			add(d)
		}
	}
	return out
}
