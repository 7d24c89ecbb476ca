package main

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"mum/internal/facts"
	"mum/internal/merr"
	"mum/internal/mum/token"
)

// writeFacts derives one training.macro_unit.selected fact per accepted
// macro-unit and writes them as a concatenation of binary fact frames,
// exercising the fact codec against real pipeline output.
func writeFacts(l layout, units []token.MacroUnit, datasetID, modelID string) error {
	scope := fmt.Sprintf("/datasets/%s/models/%s", datasetID, modelID)
	var buf bytes.Buffer
	for _, u := range units {
		f := facts.NewFact(
			facts.Predicate{Namespace: "training", Name: "macro_unit.selected"},
			[]facts.Slot{
				{Name: "pattern", Term: facts.EntityAtom(base64.StdEncoding.EncodeToString(u.Bytes))},
				{Name: "length", Term: facts.IntegerAtom(int64(u.Length))},
				{Name: "count", Term: facts.IntegerAtom(int64(u.Count))},
				{Name: "mdl_score", Term: facts.NumberAtom(u.MDLScore)},
			},
			facts.Assert,
			scope,
			facts.WithProvenance(facts.ProvenanceLink{Source: "mum-train", Detail: modelID}),
		)
		frame, err := facts.Encode(f)
		if err != nil {
			return merr.Format("mum-train.writeFacts", err)
		}
		buf.Write(frame)
	}
	return writeFile(l.factsFile(), buf.Bytes())
}
