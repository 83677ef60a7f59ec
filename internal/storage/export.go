package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run    *RunMetadata `json:"run"`
	Traces []Trace      `json:"traces"`
}

// ExportJSON writes a run and its traces as one indented JSON document.
func ExportJSON(w io.Writer, meta *RunMetadata, traces []Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: meta, Traces: traces})
}

func ExportFile(path string, meta *RunMetadata, traces []Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSON(file, meta, traces)
}
