package trace

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://trialviz.dev/schema/dataset.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// ValidateJSON checks a raw dataset document against the embedded schema.
func ValidateJSON(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// ParseDataset validates and decodes a raw dataset document.
//
// Edges without a count are given a count of 1. Trial ids must be positive.
// Dangling edges are not rejected here; run the result through [Ingest].
func ParseDataset(data []byte) (*Dataset, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if ds.Trial1 <= 0 || ds.Trial2 <= 0 {
		return nil, fmt.Errorf("%w: trial1=%d trial2=%d", ErrInvalidTrial, ds.Trial1, ds.Trial2)
	}
	for i := range ds.Edges {
		if ds.Edges[i].Count == 0 {
			ds.Edges[i].Count = 1
		}
	}
	return &ds, nil
}

// ReadDataset reads a JSON dataset from r. It does not close r.
func ReadDataset(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return ParseDataset(data)
}

// ReadDatasetFile reads the JSON dataset stored at path.
func ReadDatasetFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	ds, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// MarshalDataset encodes a dataset as indented JSON.
func MarshalDataset(ds *Dataset) ([]byte, error) {
	return json.MarshalIndent(ds, "", "  ")
}

// WriteDataset encodes ds as JSON and writes it to w.
// The output can be read back with [ReadDataset].
func WriteDataset(ds *Dataset, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteDatasetFile writes ds as JSON to path, creating or truncating it.
func WriteDatasetFile(ds *Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteDataset(ds, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
