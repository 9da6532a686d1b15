package odfinittools

import (
	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/red-hat-storage/odf-gotests/tests/internal/inittools"
	"github.com/red-hat-storage/odf-gotests/tests/odf/internal/odftestconfig"
)

var (
	// APIClient provides API access to the default cluster.
	APIClient *clients.Settings
	// Registry holds the cluster contexts of the run.
	Registry *multicluster.Registry
	// ODFConfig provides access to odf configuration parameters.
	ODFConfig *odftestconfig.ODFConfig
)

// init loads all variables automatically when this package is imported. Once package is imported a user has full
// access to all vars within init function. It is recommended to import this package using dot import.
func init() {
	ODFConfig = odftestconfig.NewODFConfig(inittools.GeneralConfig)
	APIClient = inittools.APIClient
	Registry = inittools.Registry
}
