package variable

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/oac-tree/sequencer/anyvalue"
	"github.com/oac-tree/sequencer/attrs"
)

// File is the JSON-file-backed reference Variable. GetValue
// re-parses the file as JSON; SetValue serializes the value back to it.
type File struct {
	base
	attrs    *attrs.Handler
	fileName string
	pretty   bool
}

// NewFile constructs an unconfigured File variable.
func NewFile() *File {
	h := attrs.New()
	h.Define("fileName", attrs.Definition{Mandatory: true, Category: attrs.Literal})
	h.Define("pretty", attrs.Definition{Category: attrs.Literal, Type: "bool"})
	return &File{attrs: h}
}

func (f *File) TypeName() string          { return "File" }
func (f *File) Attributes() *attrs.Handler { return f.attrs }

// Setup validates the mandatory fileName attribute and does an initial read.
func (f *File) Setup() ([]SetupAction, error) {
	fileName, ok := f.attrs.Raw("fileName")
	if !ok || fileName == "" {
		return nil, fmt.Errorf("variable: File requires a non-empty fileName attribute")
	}
	f.fileName = fileName

	if raw, ok := f.attrs.Raw("pretty"); ok {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("variable: File pretty attribute: %w", err)
		}
		f.pretty = b
	}

	f.refresh()
	return nil, nil
}

func (f *File) Reset() {
	f.refresh()
}

func (f *File) Teardown() {
	f.publish(anyvalue.Empty(), false)
}

// Clear marks the variable unavailable in memory. Since GetValue always
// re-reads the backing file, a clear only sticks until the next read if the
// file itself still exists on disk.
func (f *File) Clear() {
	f.publish(anyvalue.Empty(), false)
}

// refresh re-reads the backing file and republishes availability.
func (f *File) refresh() {
	data, err := os.ReadFile(f.fileName)
	if err != nil {
		f.publish(anyvalue.Empty(), false)
		return
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		f.publish(anyvalue.Empty(), false)
		return
	}
	v, err := anyvalue.New("", decoded)
	if err != nil {
		f.publish(anyvalue.Empty(), false)
		return
	}
	f.publish(v, true)
}

// GetValue re-reads the file before resolving field "get_value
// parses the file as JSON" (the file may change underneath the process).
func (f *File) GetValue(field string) (anyvalue.Value, error) {
	f.refresh()
	if !f.IsAvailable() {
		return anyvalue.Value{}, fmt.Errorf("variable: File %q: %w", f.fileName, ErrNotAvailable)
	}
	return f.rawValue().GetField(field)
}

// SetValue serializes the updated value back to the file, writing via a
// temp file plus rename so a crash mid-write never corrupts the backing
// file.
func (f *File) SetValue(value anyvalue.Value, field string) error {
	current := f.rawValue()
	next := value
	if field != "" {
		updated, err := current.SetField(field, value)
		if err != nil {
			return fmt.Errorf("variable: File: %w", err)
		}
		next = updated
	}

	var data []byte
	var err error
	if f.pretty {
		data, err = json.MarshalIndent(next.AsInterface(), "", "  ")
	} else {
		data, err = json.Marshal(next.AsInterface())
	}
	if err != nil {
		return fmt.Errorf("variable: File: encode: %w", err)
	}

	if err := writeFileAtomic(f.fileName, data); err != nil {
		return fmt.Errorf("variable: File: write %q: %w", f.fileName, err)
	}
	f.publish(next, true)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
