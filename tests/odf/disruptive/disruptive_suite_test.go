package disruptive

import (
	"runtime"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/red-hat-storage/odf-gotests/tests/internal/polarion"
	"github.com/red-hat-storage/odf-gotests/tests/internal/reporter"
	_ "github.com/red-hat-storage/odf-gotests/tests/odf/disruptive/tests"
	. "github.com/red-hat-storage/odf-gotests/tests/odf/internal/odfinittools"
	"github.com/red-hat-storage/odf-gotests/tests/odf/internal/odftestparams"
)

var _, currentFile, _, _ = runtime.Caller(0)

func TestDisruptive(t *testing.T) {
	_, reporterConfig := GinkgoConfiguration()
	reporterConfig.JUnitReport = ODFConfig.GetJunitReportPath(currentFile)

	RegisterFailHandler(Fail)
	RunSpecs(t, "Disruptive", Label(odftestparams.DisruptiveLabels...), reporterConfig)
}

var _ = JustAfterEach(func() {
	reporter.ReportIfFailed(CurrentSpecReport(), ODFConfig.GetDumpFailedTestReportLocation(currentFile),
		Registry, append([]string{ODFConfig.DisruptNamespace}, odftestparams.ReporterNamespacesToDump...), nil)
})

var _ = ReportAfterSuite("", func(report Report) {
	Expect(polarion.CreateReport(report, ODFConfig.GetPolarionReportPath(currentFile), ODFConfig.TCPrefix,
		odftestparams.SuiteProperties(Registry))).To(Succeed())
})
