package disruption

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// parseCephHealth returns the status field of "ceph health -f json".
func parseCephHealth(output string) (string, error) {
	if !gjson.Valid(output) {
		return "", fmt.Errorf("ceph health output is not valid json: %q", output)
	}

	status := gjson.Get(output, "status")
	if !status.Exists() {
		return "", fmt.Errorf("ceph health output has no status: %q", output)
	}

	return status.String(), nil
}

// HealthChecks returns the names of the failing health checks of "ceph health -f json".
func HealthChecks(output string) []string {
	var checks []string

	gjson.Get(output, "checks").ForEach(func(key, _ gjson.Result) bool {
		checks = append(checks, key.String())

		return true
	})

	return checks
}
