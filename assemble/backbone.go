package assemble

import (
	"encoding/xml"

	"github.com/veratrix/esg/errors"
)

// BackboneFileName is the package's index document at the package root
const BackboneFileName = "index.xml"

// backbone is the structured index document enumerating every content file
// in the package together with submission metadata. Its serialized bytes
// are themselves an integrity artifact: the checksum side-file records the
// digest of exactly what buildBackbone returns.
type backbone struct {
	XMLName           xml.Name       `xml:"ectd-backbone"`
	DTDVersion        string         `xml:"dtd-version,attr"`
	Applicant         string         `xml:"applicant"`
	ApplicationNumber string         `xml:"application-number"`
	SequenceNumber    string         `xml:"sequence-number"`
	SubmissionType    string         `xml:"submission-type"`
	Leaves            []backboneLeaf `xml:"leaf"`
}

// backboneLeaf references one content file by its package-relative path
// and integrity digest.
type backboneLeaf struct {
	Href         string `xml:"xlink:href,attr"`
	Checksum     string `xml:"checksum,attr"`
	ChecksumType string `xml:"checksum-type,attr"`
	Title        string `xml:"title"`
}

// buildBackbone serializes the backbone manifest. Leaves must already be
// in deterministic (section-code) order; the serialized bytes are hashed
// by the caller.
func buildBackbone(meta backbone) ([]byte, error) {
	data, err := xml.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal backbone")
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}
