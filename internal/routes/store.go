package routes

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// LoadFile reads the routes document from path. A missing file yields
// an empty document rather than an error, per spec.md §4.10 ("missing
// routes file yields an empty table").
func LoadFile(path string) (Document, error) {
	if path == "" {
		return Document{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// SaveFile overwrites the routes document at path atomically:
// write-temp-then-rename, so a reader never observes a partially
// written file (spec.md §4.10/§6.4).
func SaveFile(path string, doc Document) error {
	if path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".routes-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// LoadTable builds a Table from the routes document at path, without
// running the SSRF/probe admission checks — those run once, at
// process boot, against already-trusted on-disk state (spec.md §4.9
// only mandates the checks for newly *registered* routes via the
// admin API, not for re-loading a file the operator already wrote).
func LoadTable(path string) (*Table, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	table := NewTable()
	for _, rule := range doc.Routes {
		if err := table.Add(rule); err != nil {
			return nil, err
		}
	}
	return table, nil
}
