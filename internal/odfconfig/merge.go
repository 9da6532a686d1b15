package odfconfig

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"gopkg.in/yaml.v2"
)

// Merge deep merges override into base and returns base. Nested maps are merged key by key, any other value of
// override replaces the one of base.
func Merge(base, override map[string]interface{}) map[string]interface{} {
	if base == nil {
		base = map[string]interface{}{}
	}

	for key, overrideValue := range override {
		overrideMap, overrideIsMap := overrideValue.(map[string]interface{})
		baseMap, baseIsMap := base[key].(map[string]interface{})

		if overrideIsMap && baseIsMap {
			base[key] = Merge(baseMap, overrideMap)

			continue
		}

		if overrideIsMap {
			base[key] = Merge(map[string]interface{}{}, overrideMap)

			continue
		}

		base[key] = overrideValue
	}

	return base
}

// ReadFile reads a YAML document into a map with string keys at every level.
func ReadFile(path string) (map[string]interface{}, error) {
	glog.V(100).Infof("Reading configuration file %s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{ClusterIndex: -1, Field: path, Reason: "cannot read config file", Err: err}
	}

	var document map[interface{}]interface{}

	if err := yaml.Unmarshal(content, &document); err != nil {
		return nil, &ConfigError{ClusterIndex: -1, Field: path, Reason: "invalid yaml", Err: err}
	}

	normalized, ok := normalize(document).(map[string]interface{})
	if !ok {
		return map[string]interface{}{}, nil
	}

	return normalized, nil
}

// MergeFiles merges the files left to right on top of base.
func MergeFiles(base map[string]interface{}, paths ...string) (map[string]interface{}, error) {
	for _, path := range paths {
		document, err := ReadFile(path)
		if err != nil {
			return nil, err
		}

		base = Merge(base, document)
	}

	return base, nil
}

func normalize(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(typed))
		for key, nested := range typed {
			normalized[fmt.Sprint(key)] = normalize(nested)
		}

		return normalized
	case map[string]interface{}:
		for key, nested := range typed {
			typed[key] = normalize(nested)
		}

		return typed
	case []interface{}:
		for index, nested := range typed {
			typed[index] = normalize(nested)
		}

		return typed
	default:
		return value
	}
}

func deepCopy(value interface{}) interface{} {
	switch typed := value.(type) {
	case map[string]interface{}:
		copied := make(map[string]interface{}, len(typed))
		for key, nested := range typed {
			copied[key] = deepCopy(nested)
		}

		return copied
	case []interface{}:
		copied := make([]interface{}, len(typed))
		for index, nested := range typed {
			copied[index] = deepCopy(nested)
		}

		return copied
	default:
		return value
	}
}
