package model

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeJobDefinition decodes a job submission payload (a generic map, e.g.
// parsed from JSON or YAML) into a JobDefinition and validates it.
func DecodeJobDefinition(payload map[string]interface{}) (JobDefinition, error) {
	var def JobDefinition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &def,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return def, fmt.Errorf("failed to build job definition decoder: %w", err)
	}
	if err := decoder.Decode(payload); err != nil {
		return def, fmt.Errorf("failed to decode job definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return def, err
	}
	return def, nil
}
