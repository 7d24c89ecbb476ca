package telemetry

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStartLogCloseWritesEvents(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLog(dir)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	runID, err := log.Start("train")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected a non-empty run id")
	}
	log.Log("sequence_ingested", map[string]int{"count": 1})
	log.Log("checkpoint_written", nil)
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var found string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jsonl") {
			found = e.Name()
		}
	}
	if found == "" {
		t.Fatalf("expected a .jsonl log file to be written")
	}

	f, err := os.Open(filepath.Join(dir, found))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 lines in the log, got %d", lines)
	}
}

func TestRotateKeepsBoundedRunCount(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLog(dir)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	for i := 0; i < MaxRotatedRuns+3; i++ {
		if _, err := log.Start("train"); err != nil {
			t.Fatalf("Start: %v", err)
		}
		log.Log("tick", nil)
	}
	_ = log.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var count int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".jsonl") {
			count++
		}
	}
	if count > MaxRotatedRuns {
		t.Errorf("expected at most %d retained run logs, got %d", MaxRotatedRuns, count)
	}
}

func TestLogBeforeStartIsNoop(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLog(dir)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	log.Log("ignored", nil) // must not panic
}

func TestRotationIsScopedPerLabel(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLog(dir)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	if _, err := log.Start("train"); err != nil {
		t.Fatalf("Start(train): %v", err)
	}
	log.Log("tick", nil)
	for i := 0; i < MaxRotatedRuns+3; i++ {
		if _, err := log.Start("generate"); err != nil {
			t.Fatalf("Start(generate): %v", err)
		}
		log.Log("tick", nil)
	}
	_ = log.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var trainFiles, generateFiles int
	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "run_train_"):
			trainFiles++
		case strings.HasPrefix(e.Name(), "run_generate_"):
			generateFiles++
		}
	}
	if trainFiles != 1 {
		t.Errorf("expected the lone train run to survive generate rotation, found %d train files", trainFiles)
	}
	if generateFiles > MaxRotatedRuns {
		t.Errorf("expected at most %d retained generate runs, got %d", MaxRotatedRuns, generateFiles)
	}
}

func TestActivePartRollsPastMaxBytes(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLog(dir)
	if err != nil {
		t.Fatalf("NewLog: %v", err)
	}
	log.maxPartBytes = 64 // force a roll after a couple of small events
	runID, err := log.Start("train")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 10; i++ {
		log.Log("tick", map[string]int{"i": i})
	}
	_ = log.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var parts int
	prefix := "run_train_" + runID
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			parts++
		}
	}
	if parts < 2 {
		t.Errorf("expected the active log to split into multiple parts, got %d", parts)
	}
}
