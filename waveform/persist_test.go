package waveform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "systole.json")

	saved := File{
		Method: "CubicSpline",
		Points: []KeyPoint{{0, 0}, {0.3, 42}, {0.8, 12}},
		Limits: Limits{MinPosition: 0, MaxPosition: 100, MaxVelocity: 300, MaxAccel: 4000},
	}
	if err := Save(path, saved); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Version != fileVersion {
		t.Errorf("version = %d, want %d", loaded.Version, fileVersion)
	}
	if loaded.Method != saved.Method || len(loaded.Points) != len(saved.Points) {
		t.Fatalf("loaded %+v, want %+v", loaded, saved)
	}
	for i := range saved.Points {
		if loaded.Points[i] != saved.Points[i] {
			t.Errorf("point %d = %+v, want %+v", i, loaded.Points[i], saved.Points[i])
		}
	}
	if loaded.Limits != saved.Limits {
		t.Errorf("limits = %+v, want %+v", loaded.Limits, saved.Limits)
	}

	// Re-fitting the loaded record reproduces the same curve as fitting the
	// original: persistence stores inputs, not derived samples.
	method, err := ParseMethod(loaded.Method)
	if err != nil {
		t.Fatal(err)
	}
	w1, err := Fit(saved.Points, CubicSpline, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	w2, err := Fit(loaded.Points, method, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	for i := range w1.Samples {
		if w1.Samples[i] != w2.Samples[i] {
			t.Errorf("sample %d differs after reload: %+v vs %+v", i, w1.Samples[i], w2.Samples[i])
		}
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"one point", `{"version":1,"method":"CubicSpline","points":[{"time":0,"position":0}],"limits":{"min_position":0,"max_position":1}}`},
		{"bad method", `{"version":1,"method":"Akima","points":[{"time":0,"position":0},{"time":1,"position":1}],"limits":{"min_position":0,"max_position":1}}`},
		{"negative time", `{"version":1,"method":"Lagrange","points":[{"time":-1,"position":0},{"time":1,"position":1}],"limits":{"min_position":0,"max_position":1}}`},
		{"missing limits", `{"version":1,"method":"Lagrange","points":[{"time":0,"position":0},{"time":1,"position":1}]}`},
		{"wrong version", `{"version":2,"method":"Lagrange","points":[{"time":0,"position":0},{"time":1,"position":1}],"limits":{"min_position":0,"max_position":1}}`},
		{"not json", `beat profile v1`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.json")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("malformed file accepted")
			}
		})
	}
}

func TestSaveRejectsUnknownMethod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.json")
	err := Save(path, File{Method: "Akima", Points: []KeyPoint{{0, 0}, {1, 1}}})
	if err == nil {
		t.Error("unknown method accepted")
	}
}
