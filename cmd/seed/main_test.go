package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "challenges.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestReadSeed(t *testing.T) {
	path := writeSeed(t, `[
		{"id": "sql-101", "island_id": "sql_shore", "title": "First Select", "difficulty": 1,
		 "hints": [{"level": 1, "hint": "Use SELECT", "cost": 5}]},
		{"island_id": "python_peninsula", "title": "Group and Count", "difficulty": 3}
	]`)

	challenges, err := readSeed(path)
	if err != nil {
		t.Fatalf("readSeed: %v", err)
	}
	if len(challenges) != 2 {
		t.Fatalf("got %d challenges, want 2", len(challenges))
	}
	if len(challenges[0].Hints) != 1 || challenges[0].Hints[0].Text != "Use SELECT" {
		t.Errorf("hints = %+v", challenges[0].Hints)
	}
	if got := challenges[1].ID; !strings.HasSuffix(got, "-group-and-count") {
		t.Errorf("derived id = %q", got)
	}
}

func TestReadSeed_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate id":   `[{"id":"a","title":"A","difficulty":1},{"id":"a","title":"B","difficulty":1}]`,
		"bad difficulty": `[{"id":"a","title":"A","difficulty":9}]`,
		"missing title":  `[{"id":"a","difficulty":1}]`,
		"not json":       `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := readSeed(writeSeed(t, body)); err == nil {
				t.Error("readSeed accepted invalid input")
			}
		})
	}
	if _, err := readSeed(filepath.Join(t.TempDir(), "missing.json")); err == nil || !strings.Contains(err.Error(), "missing.json") {
		t.Errorf("missing file err = %v", err)
	}
}
