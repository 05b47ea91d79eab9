package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_DropsEmptyPreservesOrder(t *testing.T) {
	templates := []string{
		"nmap",
		"-p{{.ports}}",
		"{{.rate}}",
		"{{.target}}",
	}
	values := map[string]interface{}{
		"ports":  "445,3389",
		"rate":   "",
		"target": "10.0.0.1",
	}

	argv, err := Build(templates, values)
	require.NoError(t, err)
	assert.Equal(t, []string{"nmap", "-p445,3389", "10.0.0.1"}, argv)
}

func TestBuild_PureSubstitutionNoValues(t *testing.T) {
	argv, err := Build([]string{"hashcat", "-m0"}, map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hashcat", "-m0"}, argv)
}

func TestBuild_BadTemplateIsError(t *testing.T) {
	_, err := Build([]string{"{{.unterminated"}, map[string]interface{}{})
	assert.Error(t, err)
}
