package display

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Document is what the file adapter writes for an external renderer.
type Document struct {
	Temperature string `yaml:"temperature"`
	Humidity    string `yaml:"humidity"`
	Pressure    string `yaml:"pressure"`
	Address     string `yaml:"address"`
	Timestamp   string `yaml:"timestamp"`
}

// File writes the panel as a YAML document, replacing the file atomically
// on every flush.
type File struct {
	path string
	doc  Document
}

// NewFile returns a File adapter writing to path.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) SetTemperature(text string) { f.doc.Temperature = text }
func (f *File) SetHumidity(text string)    { f.doc.Humidity = text }
func (f *File) SetPressure(text string)    { f.doc.Pressure = text }
func (f *File) SetAddress(text string)     { f.doc.Address = text }
func (f *File) SetTimestamp(text string)   { f.doc.Timestamp = text }

func (f *File) Flush() error {
	data, err := yaml.Marshal(&f.doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}
