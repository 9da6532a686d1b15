package inittools

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/onsi/ginkgo/v2"
	"github.com/red-hat-storage/odf-gotests/internal/multicluster"
	"github.com/red-hat-storage/odf-gotests/internal/odfconfig"
	"github.com/red-hat-storage/odf-gotests/pkg/clients"
	"github.com/red-hat-storage/odf-gotests/tests/internal/config"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var (
	// APIClient provides access to the default cluster of the run.
	APIClient *clients.Settings
	// Registry holds the cluster contexts of the run.
	Registry *multicluster.Registry
	// GeneralConfig provides access to general configuration parameters.
	GeneralConfig *config.GeneralConfig
)

// init loads all variables automatically when this package is imported. Once package is imported a user has full
// access to all vars within init function. It is recommended to import this package using dot import.
func init() {
	// Work around bug in glog lib
	logf.SetLogger(zap.New(zap.WriteTo(ginkgo.GinkgoWriter), zap.UseDevMode(true)))

	// Skip loading config if running unit tests
	if os.Getenv("UNIT_TEST") == "true" {
		return
	}

	if GeneralConfig = config.NewConfig(); GeneralConfig == nil {
		glog.Fatalf("error to load general config")
	}

	_ = flag.Lookup("logtostderr").Value.Set("true")
	_ = flag.Lookup("v").Value.Set(GeneralConfig.VerboseLevel)

	clusterConfigs, err := odfconfig.Load(GeneralConfig.LoadSpec())
	if err != nil {
		glog.Fatalf("error to load cluster configurations: %v", err)
	}

	if _, err := odfconfig.DumpAll(clusterConfigs); err != nil {
		glog.Warningf("error to dump cluster configurations: %v", err)
	}

	Registry, err = multicluster.FromConfig(clusterConfigs, GeneralConfig.DefaultClusterIndex,
		multicluster.WithKubeconfigExport(true))
	if err != nil {
		glog.Fatalf("error to build the cluster registry: %v", err)
	}

	if APIClient, err = Registry.Current().APIClient(); err != nil {
		if GeneralConfig.DryRun {
			return
		}

		glog.Exitf("can not load ApiClient of %s: %v", Registry.Current(), err)
	}
}
