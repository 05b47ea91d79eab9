package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skelet0wn-go/skelet0wn/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse interface/mapping files without executing",
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().String("interface", "", "interface.yml to validate")
	validateCmd.Flags().String("mapping", "", "mapping.yml to validate")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	ifacePath, _ := cmd.Flags().GetString("interface")
	mappingPath, _ := cmd.Flags().GetString("mapping")

	if ifacePath == "" && mappingPath == "" {
		return fmt.Errorf("at least one of --interface or --mapping is required")
	}

	if ifacePath != "" {
		iface, err := validateInterface(ifacePath)
		if err != nil {
			return err
		}
		fmt.Printf("interface %s: %d input(s), %d command template(s), image %s\n",
			ifacePath, len(iface.Inputs), len(iface.Command), iface.Image.Tag)
	}

	if mappingPath != "" {
		mapping, err := validateMapping(mappingPath)
		if err != nil {
			return err
		}
		fmt.Printf("mapping %s: %d input(s) mapped\n", mappingPath, len(mapping))
	}

	return nil
}

func validateInterface(path string) (types.InterfaceDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.InterfaceDescriptor{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var iface types.InterfaceDescriptor
	if err := yaml.Unmarshal(data, &iface); err != nil {
		return types.InterfaceDescriptor{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(iface.Command) == 0 {
		return types.InterfaceDescriptor{}, fmt.Errorf("%s: command template must not be empty", path)
	}
	if iface.Image.Tag == "" {
		return types.InterfaceDescriptor{}, fmt.Errorf("%s: image.tag is required", path)
	}
	return iface, nil
}

func validateMapping(path string) (types.MappingDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var mapping types.MappingDescriptor
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for name, provider := range mapping {
		switch provider.Kind {
		case types.ProviderStatic:
			if provider.Value == nil {
				return nil, fmt.Errorf("%s: input %q: static provider has no value", path, name)
			}
		case types.ProviderDynamic:
			if provider.Query == nil {
				return nil, fmt.Errorf("%s: input %q: dynamic provider has no query", path, name)
			}
			if provider.Query.Collection == "" {
				return nil, fmt.Errorf("%s: input %q: query is missing a collection", path, name)
			}
			if len(provider.Query.Projection) != 1 {
				return nil, fmt.Errorf("%s: input %q: projection must name exactly one field", path, name)
			}
		default:
			return nil, fmt.Errorf("%s: input %q: unrecognized provider kind %q", path, name, provider.Kind)
		}
	}
	return mapping, nil
}
