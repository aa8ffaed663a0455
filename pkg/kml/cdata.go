package kml

import (
	"encoding/xml"
	"io"

	gokml "github.com/twpayne/go-kml"
)

// CDATAElement is a KML element whose text is written as a CDATA section.
type CDATAElement struct {
	xml.StartElement
	Value string
}

var _ gokml.Element = (*CDATAElement)(nil)

// CDATA returns a new element named name holding value as CDATA.
func CDATA(name, value string) *CDATAElement {
	return &CDATAElement{
		StartElement: xml.StartElement{Name: xml.Name{Local: name}},
		Value:        value,
	}
}

// MarshalXML marshals ce to e. start is ignored.
func (ce *CDATAElement) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	return e.EncodeElement(struct {
		Value string `xml:",cdata"`
	}{ce.Value}, ce.StartElement)
}

// Write writes an XML header and ce to w.
func (ce *CDATAElement) Write(w io.Writer) error {
	return ce.WriteIndent(w, "", "")
}

// WriteIndent writes an XML header and ce to w.
func (ce *CDATAElement) WriteIndent(w io.Writer, prefix, indent string) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent(prefix, indent)
	return enc.Encode(ce)
}
