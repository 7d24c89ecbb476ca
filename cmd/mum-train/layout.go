package main

import "path/filepath"

// layout resolves the persisted cache/ directory paths for one
// dataset+model pair, per the directory layout:
//
//	cache/models/<engine>/<datasetId>/<modelId>/{model.json, meta.json, facts.json, checkpoint.json?}
//	cache/models/<engine>/<datasetId>/latest.json
//	cache/datasets/<datasetId>/latest.json
type layout struct {
	root, engine, datasetID, modelID string
}

func newLayout(root, engine, datasetID, modelID string) layout {
	return layout{root: root, engine: engine, datasetID: datasetID, modelID: modelID}
}

func (l layout) modelDir() string { return filepath.Join(l.root, "models", l.engine, l.datasetID, l.modelID) }
func (l layout) modelFile() string      { return filepath.Join(l.modelDir(), "model.json") }
func (l layout) metaFile() string       { return filepath.Join(l.modelDir(), "meta.json") }
func (l layout) factsFile() string      { return filepath.Join(l.modelDir(), "facts.json") }
func (l layout) checkpointFile() string { return filepath.Join(l.modelDir(), "checkpoint.json") }

func (l layout) engineLatestFile() string {
	return filepath.Join(l.root, "models", l.engine, l.datasetID, "latest.json")
}

func (l layout) datasetDir() string        { return filepath.Join(l.root, "datasets", l.datasetID) }
func (l layout) datasetLatestFile() string { return filepath.Join(l.datasetDir(), "latest.json") }
