// Package command renders a tool class's command template against a
// resolver's resolved values: pure scalar substitution, empty arguments
// dropped, order of the surviving ones preserved.
package command

import (
	"bytes"
	"fmt"
	"text/template"
)

// Build renders each entry in templates against values and returns the
// non-empty results in order. Each template is a Go text/template string
// referencing input names as fields, e.g. "--target={{.target}}".
func Build(templates []string, values map[string]interface{}) ([]string, error) {
	argv := make([]string, 0, len(templates))

	for i, tmpl := range templates {
		rendered, err := render(tmpl, values)
		if err != nil {
			return nil, fmt.Errorf("rendering argument %d (%q): %w", i, tmpl, err)
		}
		if rendered == "" {
			continue
		}
		argv = append(argv, rendered)
	}

	return argv, nil
}

func render(tmpl string, values map[string]interface{}) (string, error) {
	t, err := template.New("arg").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
