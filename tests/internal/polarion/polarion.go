package polarion

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/ginkgo/v2/types"
)

const (
	polarionTag    = "polarion-testcase-id"
	testIDTag      = "test_id"
	propertyPrefix = "polarion-parameter-"
)

type (
	// TestSuite is the polarion xunit test suite of one ginkgo suite.
	TestSuite struct {
		XMLName    xml.Name   `xml:"testsuite"`
		Name       string     `xml:"name,attr"`
		Tests      int        `xml:"tests,attr"`
		Skipped    int        `xml:"skipped,attr"`
		Failures   int        `xml:"failures,attr"`
		Time       float64    `xml:"time,attr"`
		Properties Properties `xml:"properties"`
		TestCases  []TestCase `xml:"testcase"`
	}

	// TestCase is one ginkgo spec.
	TestCase struct {
		Name           string          `xml:"name,attr"`
		Time           float64         `xml:"time,attr"`
		Properties     Properties      `xml:"properties"`
		FailureMessage *FailureMessage `xml:"failure,omitempty"`
		Skipped        *Skipped        `xml:"skipped,omitempty"`
	}

	// FailureMessage holds the location and the message of a failed spec.
	FailureMessage struct {
		Type    string `xml:"type,attr"`
		Message string `xml:",chardata"`
	}

	// Skipped holds the reason a spec was skipped.
	Skipped struct {
		Message string `xml:"message,attr,omitempty"`
	}

	// Properties wraps the property list of a suite or a test case.
	Properties struct {
		Property []Property `xml:"property"`
	}

	// Property is a name value pair.
	Property struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
	}
)

// CreateReport writes report to destFile in the polarion xunit format. projectTag prefixes the test ids, the
// suiteProperties describe the run, e.g. the cluster names and the ODF version. Nothing is written when destFile
// is empty.
func CreateReport(report ginkgo.Report, destFile, projectTag string, suiteProperties map[string]string) error {
	if destFile == "" {
		return nil
	}

	testSuite := TestSuite{
		Name:     report.SuiteDescription,
		Time:     report.RunTime.Seconds(),
		Skipped:  report.SpecReports.CountWithState(types.SpecStateSkipped),
		Failures: report.SpecReports.CountWithState(types.SpecStateFailureStates),
	}

	keys := make([]string, 0, len(suiteProperties))
	for key := range suiteProperties {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		testSuite.Properties.Property = append(testSuite.Properties.Property,
			Property{Name: propertyPrefix + key, Value: suiteProperties[key]})
	}

	for _, specReport := range report.SpecReports {
		if specReport.LeafNodeType != types.NodeTypeIt {
			continue
		}

		testSuite.TestCases = append(testSuite.TestCases, newTestCase(specReport, projectTag))
		testSuite.Tests++
	}

	return writeXML(destFile, testSuite)
}

// ID tags a spec with its polarion test case id.
func ID(tag string) ginkgo.Labels {
	return ginkgo.Label(tag, fmt.Sprintf("%s:%s", testIDTag, tag))
}

// SetProperty tags a spec with a polarion parameter.
func SetProperty(propertyKey, propertyValue string) ginkgo.Labels {
	return ginkgo.Label(fmt.Sprintf("%s%s:%s", propertyPrefix, propertyKey, propertyValue))
}

func newTestCase(specReport types.SpecReport, projectTag string) TestCase {
	testCase := TestCase{
		Name: specReport.FullText(),
		Time: specReport.RunTime.Seconds(),
	}

	for _, label := range specReport.Labels() {
		switch {
		case strings.HasPrefix(label, testIDTag+":"):
			testCase.Properties.Property = append(testCase.Properties.Property, Property{
				Name:  polarionTag,
				Value: projectTag + strings.TrimPrefix(label, testIDTag+":"),
			})
		case strings.HasPrefix(label, propertyPrefix):
			name, value, _ := strings.Cut(label, ":")
			testCase.Properties.Property = append(testCase.Properties.Property, Property{Name: name, Value: value})
		}
	}

	switch {
	case specReport.State.Is(types.SpecStateFailureStates):
		testCase.FailureMessage = &FailureMessage{
			Type: failureType(specReport.State),
			Message: fmt.Sprintf("%s\n%s\n%s", specReport.Failure.FailureNodeLocation,
				specReport.Failure.Message, specReport.Failure.Location),
		}
	case specReport.State.Is(types.SpecStateSkipped | types.SpecStatePending):
		testCase.Skipped = &Skipped{Message: specReport.Failure.Message}
	}

	return testCase
}

func failureType(state types.SpecState) string {
	switch state {
	case types.SpecStateFailed:
		return "Failure"
	case types.SpecStateInterrupted:
		return "Interrupted"
	case types.SpecStatePanicked:
		return "Panic"
	case types.SpecStateTimedout:
		return "Timeout"
	default:
		return state.String()
	}
}

func writeXML(destFile string, testSuite TestSuite) error {
	file, err := os.Create(destFile)
	if err != nil {
		return fmt.Errorf("failed to create polarion report %s: %w", destFile, err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err := file.WriteString(xml.Header); err != nil {
		return err
	}

	encoder := xml.NewEncoder(file)
	encoder.Indent("", "  ")

	if err := encoder.Encode(testSuite); err != nil {
		return fmt.Errorf("failed to encode polarion report: %w", err)
	}

	return nil
}
