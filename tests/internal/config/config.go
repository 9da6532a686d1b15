package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/red-hat-storage/odf-gotests/internal/odfconfig"
	"gopkg.in/yaml.v2"
)

const (
	// PathToDefaultParamsFile path to config file with default parameters.
	PathToDefaultParamsFile = "./default.yaml"
)

// GeneralConfig type keeps general configuration.
type GeneralConfig struct {
	ReportsDirAbsPath   string   `yaml:"reports_dump_dir" envconfig:"ODF_REPORTS_DUMP_DIR"`
	VerboseLevel        string   `yaml:"verbose_level" envconfig:"ODF_VERBOSE_LEVEL"`
	DumpFailedTests     bool     `yaml:"dump_failed_tests" envconfig:"ODF_DUMP_FAILED_TESTS"`
	EnableReport        bool     `yaml:"enable_report" envconfig:"ODF_ENABLE_REPORT"`
	DryRun              bool     `yaml:"dry_run" envconfig:"ODF_DRY_RUN"`
	TCPrefix            string   `yaml:"tc_prefix" envconfig:"ODF_TC_PREFIX"`
	OCSCIConfs          []string `yaml:"ocsci_conf" envconfig:"ODF_OCSCI_CONF"`
	ClusterConfs        []string `yaml:"cluster_conf" envconfig:"ODF_CLUSTER_CONF"`
	ClusterPaths        []string `yaml:"cluster_paths" envconfig:"ODF_CLUSTER_PATHS"`
	ClusterNames        []string `yaml:"cluster_names" envconfig:"ODF_CLUSTER_NAMES"`
	NClusters           int      `yaml:"nclusters" envconfig:"ODF_NCLUSTERS"`
	DefaultClusterIndex int      `yaml:"default_cluster_index" envconfig:"ODF_DEFAULT_CLUSTER_INDEX"`
}

// NewConfig returns instance of GeneralConfig config type.
func NewConfig() *GeneralConfig {
	log.Print("Creating new GeneralConfig struct")

	var conf GeneralConfig

	_, filename, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(filename)
	confFile := filepath.Join(baseDir, PathToDefaultParamsFile)

	err := readFile(&conf, confFile)
	if err != nil {
		log.Printf("Error to read config file %s", confFile)

		return nil
	}

	err = envconfig.Process("", &conf)
	if err != nil {
		log.Print("Error to read environment variables")

		return nil
	}

	err = deployReportDir(conf.ReportsDirAbsPath)
	if err != nil {
		log.Printf("Error to deploy report directory %s due to %s", conf.ReportsDirAbsPath, err.Error())

		return nil
	}

	return &conf
}

// LoadSpec describes the cluster configurations of the run. ClusterConfs, ClusterPaths and ClusterNames are
// aligned on the cluster index.
func (cfg *GeneralConfig) LoadSpec() odfconfig.LoadSpec {
	spec := odfconfig.LoadSpec{
		NClusters:  cfg.NClusters,
		Common:     cfg.OCSCIConfs,
		PerCluster: map[int][]string{},
		Overrides:  map[int]odfconfig.Overrides{},
	}

	for index, confFile := range cfg.ClusterConfs {
		if confFile != "" {
			spec.PerCluster[index] = []string{confFile}
		}
	}

	for index := 0; index < max(cfg.NClusters, 1); index++ {
		spec.Overrides[index] = odfconfig.Overrides{
			ClusterPath: valueAt(cfg.ClusterPaths, index),
			ClusterName: valueAt(cfg.ClusterNames, index),
		}
	}

	return spec
}

// GetJunitReportPath returns full path to the junit report file.
func (cfg *GeneralConfig) GetJunitReportPath(file string) string {
	reportFileName := strings.TrimSuffix(filepath.Base(file), filepath.Ext(filepath.Base(file)))

	return fmt.Sprintf("%s_junit.xml", filepath.Join(cfg.ReportsDirAbsPath, reportFileName))
}

// GetPolarionReportPath returns full path to the polarion xml file, empty when reporting is disabled.
func (cfg *GeneralConfig) GetPolarionReportPath(file string) string {
	if !cfg.EnableReport {
		return ""
	}

	reportFileName := strings.TrimSuffix(filepath.Base(file), filepath.Ext(filepath.Base(file)))

	return fmt.Sprintf("%s_polarion.xml", filepath.Join(cfg.ReportsDirAbsPath, reportFileName))
}

// GetDumpFailedTestReportLocation returns destination directory for failed tests logs.
func (cfg *GeneralConfig) GetDumpFailedTestReportLocation(file string) string {
	if !cfg.DumpFailedTests {
		return ""
	}

	dumpFileName := strings.TrimSuffix(filepath.Base(file), filepath.Ext(filepath.Base(file)))

	return filepath.Join(cfg.ReportsDirAbsPath, fmt.Sprintf("failed_%s", dumpFileName))
}

func valueAt(values []string, index int) string {
	if index < len(values) {
		return values[index]
	}

	return ""
}

func readFile(cfg *GeneralConfig, cfgFile string) error {
	openedCfgFile, err := os.Open(cfgFile)
	if err != nil {
		return err
	}

	defer func() {
		_ = openedCfgFile.Close()
	}()

	decoder := yaml.NewDecoder(openedCfgFile)

	return decoder.Decode(cfg)
}

func deployReportDir(dirName string) error {
	_, err := os.Stat(dirName)
	if os.IsNotExist(err) {
		return os.MkdirAll(dirName, 0777)
	}

	return err
}
