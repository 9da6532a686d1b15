package odfctl

import (
	"fmt"

	"github.com/red-hat-storage/odf-gotests/internal/odfconfig"
	"github.com/red-hat-storage/odf-gotests/internal/odfparams"
	"github.com/spf13/pflag"
)

// clusterFlags are the flags repeated once per cluster with a 1-based suffix.
type clusterFlags struct {
	confs       []string
	clusterPath string
	clusterName string
	ocsVersion  string
	ocpVersion  string
}

// Options are the global flags of odfdr.
type Options struct {
	Confs             []string
	Kubeconfig        string
	Deploy            bool
	Teardown          bool
	UpgradeOCSVersion string
	UpgradeOCPVersion string
	DefaultIndex      int
	NClusters         int

	perCluster []clusterFlags
}

// BindFlags registers the global flags on flags. The per cluster flags take a 1-based suffix, the unsuffixed
// ones describe the first cluster.
func (options *Options) BindFlags(flags *pflag.FlagSet) {
	flags.StringArrayVar(&options.Confs, "ocsci-conf", nil,
		"configuration file merged into every cluster, may be repeated")
	flags.StringVar(&options.Kubeconfig, "kubeconfig", "", "kubeconfig used for every cluster")
	flags.BoolVar(&options.Deploy, "deploy", false, "deploy the clusters")
	flags.BoolVar(&options.Teardown, "teardown", false, "tear the clusters down")
	flags.StringVar(&options.UpgradeOCSVersion, "upgrade-ocs-version", "", "ODF version to upgrade to")
	flags.StringVar(&options.UpgradeOCPVersion, "upgrade-ocp-version", "", "OCP version to upgrade to")
	flags.IntVar(&options.DefaultIndex, "default-cluster-context-index", 0, "index of the default cluster")
	flags.IntVar(&options.NClusters, "nclusters", 1, "number of clusters")

	options.perCluster = make([]clusterFlags, odfparams.MaxClusters+1)

	for number := 0; number <= odfparams.MaxClusters; number++ {
		suffix, owner := "", "the first cluster"
		if number > 0 {
			suffix, owner = fmt.Sprint(number), fmt.Sprintf("cluster %d", number)

			flags.StringArrayVar(&options.perCluster[number].confs, "ocsci-conf"+suffix, nil,
				"configuration file of "+owner+", may be repeated")
		}

		target := &options.perCluster[number]

		flags.StringVar(&target.clusterPath, "cluster-path"+suffix, "", "directory holding the auth of "+owner)
		flags.StringVar(&target.clusterName, "cluster-name"+suffix, "", "name of "+owner)
		flags.StringVar(&target.ocsVersion, "ocs-version"+suffix, "", "ODF version of "+owner)
		flags.StringVar(&target.ocpVersion, "ocp-version"+suffix, "", "OCP version of "+owner)
	}
}

// LoadSpec converts the flags into the description of the configuration to load.
func (options *Options) LoadSpec() (odfconfig.LoadSpec, error) {
	if options.NClusters < 1 || options.NClusters > odfparams.MaxClusters {
		return odfconfig.LoadSpec{}, fmt.Errorf("--nclusters must be between 1 and %d, got %d",
			odfparams.MaxClusters, options.NClusters)
	}

	if options.DefaultIndex < 0 || options.DefaultIndex >= options.NClusters {
		return odfconfig.LoadSpec{}, fmt.Errorf("--default-cluster-context-index %d is out of range for %d clusters",
			options.DefaultIndex, options.NClusters)
	}

	spec := odfconfig.LoadSpec{
		NClusters:  options.NClusters,
		Common:     options.Confs,
		PerCluster: map[int][]string{},
		Overrides:  map[int]odfconfig.Overrides{},
	}

	for index := 0; index < options.NClusters; index++ {
		flags := options.perCluster[index+1]

		// The unsuffixed flags name the first cluster.
		if index == 0 {
			flags = mergeClusterFlags(options.perCluster[0], flags)
		}

		spec.PerCluster[index] = flags.confs
		spec.Overrides[index] = odfconfig.Overrides{
			ClusterPath:       flags.clusterPath,
			ClusterName:       flags.clusterName,
			OCSVersion:        flags.ocsVersion,
			OCPVersion:        flags.ocpVersion,
			Kubeconfig:        options.Kubeconfig,
			Deploy:            options.Deploy,
			Teardown:          options.Teardown,
			UpgradeOCSVersion: options.UpgradeOCSVersion,
			UpgradeOCPVersion: options.UpgradeOCPVersion,
		}
	}

	return spec, nil
}

func mergeClusterFlags(base, override clusterFlags) clusterFlags {
	merged := base
	merged.confs = append(append([]string{}, base.confs...), override.confs...)

	for _, field := range []struct {
		target *string
		value  string
	}{
		{&merged.clusterPath, override.clusterPath},
		{&merged.clusterName, override.clusterName},
		{&merged.ocsVersion, override.ocsVersion},
		{&merged.ocpVersion, override.ocpVersion},
	} {
		if field.value != "" {
			*field.target = field.value
		}
	}

	return merged
}
