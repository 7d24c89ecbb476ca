package main

import (
	"encoding/json"
	"os"

	"mum/internal/merr"
)

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return merr.IO("mum-train.writeFile", err)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return merr.Format("mum-train.writeJSON", err)
	}
	return writeFile(path, raw)
}
