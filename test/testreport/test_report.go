package testreport

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// TestReport is the JUnit XML representation of a test run, as understood by CI test report viewers.
type TestReport struct {
	XMLName    xml.Name    `xml:"testsuites"`
	Name       string      `xml:"name,attr,omitempty"`
	Tests      int         `xml:"tests,attr"`
	Failures   int         `xml:"failures,attr"`
	Time       float64     `xml:"time,attr"`
	TestSuites []TestSuite `xml:"testsuite"`
}

type TestSuite struct {
	XMLName   xml.Name   `xml:"testsuite"`
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Errors    int        `xml:"errors,attr"`
	Skipped   int        `xml:"skipped,attr"`
	Time      float64    `xml:"time,attr"`
	Timestamp string     `xml:"timestamp,attr,omitempty"`
	TestCases []TestCase `xml:"testcase"`
	SystemErr *SystemErr `xml:"system-err,omitempty"`
}

type TestCase struct {
	XMLName   xml.Name `xml:"testcase"`
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Time      float64  `xml:"time,attr"`
	Failure   *Failure `xml:"failure,omitempty"`
	Skipped   *Skipped `xml:"skipped,omitempty"`
}

type Failure struct {
	XMLName xml.Name `xml:"failure,omitempty"`
	Message string   `xml:"message,attr,omitempty"`
	Value   string   `xml:",chardata"`
}

type Skipped struct {
	XMLName xml.Name `xml:"skipped,omitempty"`
}

type SystemErr struct {
	XMLName xml.Name `xml:"system-err,omitempty"`
	Value   string   `xml:",chardata"`
}

// Marshal returns the indented XML document including the XML header.
func (r TestReport) Marshal() ([]byte, error) {
	data, err := xml.MarshalIndent(r, "", " ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlHeader), data...), nil
}

// Export writes the report to pth, creating the parent directory if needed.
func Export(report TestReport, pth string) error {
	data, err := report.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal test report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pth), 0755); err != nil {
		return fmt.Errorf("failed to create test report dir: %w", err)
	}

	if err := os.WriteFile(pth, data, 0644); err != nil {
		return fmt.Errorf("failed to write test report (%s): %w", pth, err)
	}
	return nil
}
