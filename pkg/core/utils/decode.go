package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// SmartParse decodes a hand-edited request document into v. It tries, in
// order: strict JSON, repaired JSON (trailing commas, single quotes, comments,
// unclosed brackets) and Hjson. It returns the JSON text that was accepted.
func SmartParse(input string, v any) (string, error) {
	if err := json.Unmarshal([]byte(input), v); err == nil {
		return input, nil
	}

	if repaired, err := jsonrepair.RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), v); err == nil {
			return repaired, nil
		}
	}

	converted, err := HJSONToJSON(input)
	if err != nil {
		return "", fmt.Errorf("SMART_PARSE_FAILED: %w", err)
	}
	if err := json.Unmarshal([]byte(converted), v); err != nil {
		return "", fmt.Errorf("SMART_PARSE_FAILED: %w", err)
	}
	return converted, nil
}

// HJSONToJSON converts Hjson text to standard JSON so that the target's
// json tags and TextUnmarshaler methods apply.
func HJSONToJSON(input string) (string, error) {
	var generic any
	if err := hjson.Unmarshal([]byte(input), &generic); err != nil {
		return "", fmt.Errorf("HJSON_PARSE_ERROR: %v", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("JSON_MARSHAL_ERROR: %v", err)
	}
	return string(out), nil
}
