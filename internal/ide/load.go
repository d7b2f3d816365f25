package ide

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is an IDE configuration encoding.
type Format string

// Supported formats.
const (
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("ide: unknown configuration format for %s", path)
	}
}

// document is the decoded form shared by every format. The XML layout is
//
//	<ide name="..."><commands><command ...><arg/></command></commands>
//	<files><file ...><content/></file></files></ide>
type document struct {
	XMLName  xml.Name  `xml:"ide" yaml:"-" toml:"-"`
	Name     string    `xml:"name,attr" yaml:"name" toml:"name"`
	Commands []Command `xml:"commands>command" yaml:"commands" toml:"commands"`
	Files    []File    `xml:"files>file" yaml:"files" toml:"files"`
}

// Load decodes and validates a configuration from r.
func Load(r io.Reader, format Format) (*Configuration, error) {
	var doc document
	var err error
	switch format {
	case FormatXML:
		err = xml.NewDecoder(r).Decode(&doc)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
		if errors.Is(err, io.EOF) {
			err = errors.New("empty document")
		}
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&doc)
	default:
		return nil, fmt.Errorf("ide: unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("ide: parse %s configuration: %w", format, err)
	}
	return New(doc.Name, doc.Commands, doc.Files)
}

// LoadFile loads the configuration at path, choosing the format by
// extension.
func LoadFile(path string) (*Configuration, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ide: open %s: %w", path, err)
	}
	defer f.Close()

	c, err := Load(f, format)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return c, nil
}
