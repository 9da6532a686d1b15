package params

const (
	// PolarionTCPrefix prefixes the polarion test case ids of ODF, e.g. OCS-4741.
	PolarionTCPrefix = "OCS-"
)
