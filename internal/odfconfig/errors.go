package odfconfig

import "fmt"

// ConfigError describes an invalid or missing configuration value of one cluster.
type ConfigError struct {
	// ClusterIndex is the index of the cluster the error belongs to, -1 for shared configuration.
	ClusterIndex int
	Field        string
	Reason       string
	Err          error
}

// Error returns the field and the reason of the failure.
func (configErr *ConfigError) Error() string {
	msg := fmt.Sprintf("invalid configuration of %s", configErr.Field)
	if configErr.ClusterIndex >= 0 {
		msg = fmt.Sprintf("invalid configuration of cluster %d: %s", configErr.ClusterIndex, configErr.Field)
	}

	msg += ": " + configErr.Reason

	if configErr.Err != nil {
		msg += fmt.Sprintf(": %v", configErr.Err)
	}

	return msg
}

// Unwrap returns the underlying error, if any.
func (configErr *ConfigError) Unwrap() error {
	return configErr.Err
}
