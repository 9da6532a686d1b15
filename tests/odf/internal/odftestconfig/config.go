package odftestconfig

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/red-hat-storage/odf-gotests/internal/disruption"
	"github.com/red-hat-storage/odf-gotests/internal/dr"
	"github.com/red-hat-storage/odf-gotests/internal/odfctl"
	"github.com/red-hat-storage/odf-gotests/tests/internal/config"
	"gopkg.in/yaml.v2"
)

const (
	// PathToDefaultODFParamsFile path to config file with default odf parameters.
	PathToDefaultODFParamsFile = "./default.yaml"
)

// ODFConfig type keeps odf suites configuration.
type ODFConfig struct {
	*config.GeneralConfig
	// DRWorkloads are ";" separated workloads, each one in the key=value,... form of the odfdr --workload flag.
	DRWorkloads      string   `yaml:"dr_workloads" envconfig:"ODF_DR_WORKLOADS"`
	DisruptRoles     []string `yaml:"disrupt_roles" envconfig:"ODF_DISRUPT_ROLES"`
	StorageClass     string   `yaml:"storage_class" envconfig:"ODF_STORAGE_CLASS"`
	WorkloadImage    string   `yaml:"workload_image" envconfig:"ODF_WORKLOAD_IMAGE"`
	WorkloadPVCSize  string   `yaml:"workload_pvc_size" envconfig:"ODF_WORKLOAD_PVC_SIZE"`
	SkipRelocate     bool     `yaml:"skip_relocate" envconfig:"ODF_SKIP_RELOCATE"`
	CheckMirroring   bool     `yaml:"check_mirroring" envconfig:"ODF_CHECK_MIRRORING"`
	DisruptNamespace string   `yaml:"disrupt_namespace" envconfig:"ODF_DISRUPT_NAMESPACE"`
}

// NewODFConfig returns instance of ODFConfig config type.
func NewODFConfig(generalConfig *config.GeneralConfig) *ODFConfig {
	log.Print("Creating new ODFConfig struct")

	var odfConf ODFConfig
	odfConf.GeneralConfig = generalConfig

	_, filename, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(filename)
	confFile := filepath.Join(baseDir, PathToDefaultODFParamsFile)

	if err := readFile(&odfConf, confFile); err != nil {
		log.Printf("Error to read config file %s", confFile)

		return nil
	}

	if err := envconfig.Process("", &odfConf); err != nil {
		log.Print("Error to read environment variables")

		return nil
	}

	return &odfConf
}

// Workloads parses DRWorkloads.
func (odfConfig *ODFConfig) Workloads() ([]dr.DRWorkload, error) {
	var workloads []dr.DRWorkload

	for _, value := range strings.Split(odfConfig.DRWorkloads, ";") {
		if strings.TrimSpace(value) == "" {
			continue
		}

		workload, err := odfctl.ParseWorkload(value)
		if err != nil {
			return nil, err
		}

		workloads = append(workloads, workload)
	}

	return workloads, nil
}

// Roles converts DisruptRoles, rejecting unknown ones.
func (odfConfig *ODFConfig) Roles() ([]disruption.Role, error) {
	roles := make([]disruption.Role, 0, len(odfConfig.DisruptRoles))

	for _, name := range odfConfig.DisruptRoles {
		role := disruption.Role(strings.TrimSpace(name))

		if _, err := disruption.Describe(role); err != nil {
			return nil, fmt.Errorf("invalid disrupt role: %w", err)
		}

		roles = append(roles, role)
	}

	return roles, nil
}

func readFile(odfConfig *ODFConfig, cfgFile string) error {
	openedCfgFile, err := os.Open(cfgFile)
	if err != nil {
		return err
	}

	defer func() {
		_ = openedCfgFile.Close()
	}()

	decoder := yaml.NewDecoder(openedCfgFile)

	return decoder.Decode(odfConfig)
}
