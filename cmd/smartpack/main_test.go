package main

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/smartpack/internal/config"
	"github.com/eugenenazirov/smartpack/internal/packing"
)

func testConfig() config.Config {
	return config.Config{
		Catalog:        packing.DefaultCatalogBoxes(),
		EnvelopePolicy: packing.EnvelopeMaxPerAxis,
		CustomMargin:   packing.DefaultCustomMargin,
		CostBaseRate:   packing.DefaultCostBaseRate,
		MaxAnchors:     packing.DefaultMaxAnchors,
		MaxInstances:   packing.DefaultMaxInstances,
		PackTimeout:    time.Second,
	}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "order-1001.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

const mixedManifest = "label,length,width,height,weight,quantity,fragility\n" +
	"charger,10,5,3,0.5,1,0.3\n" +
	"lamp,25,18,10,1.5,2,0.7\n"

const cubesManifest = "label,length,width,height,weight,quantity,fragility\n" +
	"cube,15,15,15,1,5,0.1\n"

func TestRunPredict(t *testing.T) {
	var out bytes.Buffer
	err := runPredict(t.Context(), testConfig(), predictOptions{
		Manifest: writeManifest(t, mixedManifest),
		Units:    "metric",
	}, &out, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("runPredict returned error: %v", err)
	}

	var got predictOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	if got.Box.Name != "M" {
		t.Fatalf("expected box M, got %q", got.Box.Name)
	}
	if got.VoidFill != packing.VoidFillFoamPeanuts {
		t.Fatalf("expected foam_peanuts, got %s", got.VoidFill)
	}
	if got.Items != 2 {
		t.Fatalf("expected 2 item lines, got %d", got.Items)
	}
}

func TestRunPredictRejectsBadManifest(t *testing.T) {
	path := writeManifest(t, "label,length,width,height,weight\nmug,0,8,8,0.4\n")

	err := runPredict(t.Context(), testConfig(), predictOptions{Manifest: path}, &bytes.Buffer{}, zaptest.NewLogger(t))
	if err == nil {
		t.Fatalf("expected error for invalid manifest row")
	}
	if !strings.Contains(err.Error(), "Line 2") {
		t.Fatalf("expected the offending line in the error, got %v", err)
	}
}

func TestRunPackToStdout(t *testing.T) {
	var out bytes.Buffer
	err := runPack(t.Context(), testConfig(), packOptions{
		Manifest: writeManifest(t, cubesManifest),
		Box:      "cube:30x30x30",
		Units:    "metric",
	}, &out, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("runPack returned error: %v", err)
	}

	var plan packing.PackingPlan
	if err := json.Unmarshal(out.Bytes(), &plan); err != nil {
		t.Fatalf("failed to decode plan: %v", err)
	}
	if len(plan.Placements) != 5 {
		t.Fatalf("expected 5 placements, got %d", len(plan.Placements))
	}
	if math.Abs(plan.SpaceUtilization-0.625) > 1e-9 {
		t.Fatalf("expected utilization 0.625, got %v", plan.SpaceUtilization)
	}
	if plan.Box.Name != "cube" {
		t.Fatalf("expected box name cube, got %q", plan.Box.Name)
	}
}

func TestRunPackWritesExports(t *testing.T) {
	manifestPath := writeManifest(t, cubesManifest)

	tests := []struct {
		file  string
		magic string
	}{
		{file: "slip.pdf", magic: "%PDF"},
		{file: "plan.xlsx", magic: "PK"},
		{file: "plan.json", magic: "{"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			output := filepath.Join(t.TempDir(), tt.file)
			var out bytes.Buffer
			err := runPack(t.Context(), testConfig(), packOptions{
				Manifest: manifestPath,
				Box:      "30x30x30",
				Output:   output,
				Units:    "imperial",
			}, &out, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("runPack returned error: %v", err)
			}

			data, err := os.ReadFile(output)
			if err != nil {
				t.Fatalf("failed to read output: %v", err)
			}
			if !bytes.HasPrefix(data, []byte(tt.magic)) {
				t.Fatalf("expected %s to start with %q", tt.file, tt.magic)
			}
			if !strings.Contains(out.String(), "5 placements") {
				t.Fatalf("expected a summary line, got %q", out.String())
			}
		})
	}
}

func TestRunPackErrors(t *testing.T) {
	manifestPath := writeManifest(t, cubesManifest)
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name    string
		opts    packOptions
		wantErr string
	}{
		{
			name:    "malformed box",
			opts:    packOptions{Manifest: manifestPath, Box: "30x30"},
			wantErr: "parse box",
		},
		{
			name:    "two boxes",
			opts:    packOptions{Manifest: manifestPath, Box: "30x30x30,20x20x20"},
			wantErr: "exactly one box",
		},
		{
			name:    "unknown void fill",
			opts:    packOptions{Manifest: manifestPath, Box: "30x30x30", VoidFill: "straw"},
			wantErr: "unknown void fill",
		},
		{
			name:    "box too small",
			opts:    packOptions{Manifest: manifestPath, Box: "20x20x20"},
			wantErr: packing.ErrInfeasible.Error(),
		},
		{
			name:    "unsupported output",
			opts:    packOptions{Manifest: manifestPath, Box: "30x30x30", Output: filepath.Join(t.TempDir(), "plan.docx")},
			wantErr: "unsupported output format",
		},
		{
			name:    "unknown units",
			opts:    packOptions{Manifest: manifestPath, Box: "30x30x30", Units: "cubits"},
			wantErr: "cubits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runPack(t.Context(), testConfig(), tt.opts, &bytes.Buffer{}, logger)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseBox(t *testing.T) {
	box, err := parseBox("mailer:35x25x5", "air_cushions")
	if err != nil {
		t.Fatalf("parseBox returned error: %v", err)
	}
	if box.Name != "mailer" || box.Volume != 35*25*5 || box.VoidFill != packing.VoidFillAirCushions {
		t.Fatalf("unexpected box %+v", box)
	}
	if box.Custom {
		t.Fatalf("caller supplied boxes are never custom")
	}
}
