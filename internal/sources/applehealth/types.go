// Package applehealth parses Apple Health XML exports into health
// record models. The export is a single document with a HealthData
// root and one Record element per observation, all data carried as
// attributes.
package applehealth

// Element and attribute names in the export document.
const (
	RootElement   = "HealthData"
	RecordElement = "Record"
)

// recordElement mirrors one Record element's attributes.
type recordElement struct {
	Type          string `xml:"type,attr"`
	SourceName    string `xml:"sourceName,attr"`
	SourceVersion string `xml:"sourceVersion,attr"`
	Device        string `xml:"device,attr"`
	Unit          string `xml:"unit,attr"`
	CreationDate  string `xml:"creationDate,attr"`
	StartDate     string `xml:"startDate,attr"`
	EndDate       string `xml:"endDate,attr"`
	Value         string `xml:"value,attr"`
}
