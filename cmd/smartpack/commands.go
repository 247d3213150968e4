package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/smartpack/internal/application"
	"github.com/eugenenazirov/smartpack/internal/config"
	"github.com/eugenenazirov/smartpack/internal/export"
	"github.com/eugenenazirov/smartpack/internal/manifest"
	"github.com/eugenenazirov/smartpack/internal/packing"
	"github.com/eugenenazirov/smartpack/internal/storage"
	"github.com/eugenenazirov/smartpack/internal/units"
)

type predictOptions struct {
	Manifest string
	Units    string
}

type packOptions struct {
	Manifest string
	Box      string
	VoidFill string
	Output   string
	Units    string
}

type predictOutput struct {
	Box            packing.Box        `json:"recommended_box"`
	RequiredVolume float64            `json:"required_volume"`
	Envelope       packing.Dimensions `json:"required_envelope"`
	VoidFill       packing.VoidFill   `json:"void_fill"`
	LengthUnit     string             `json:"length_unit"`
	Items          int                `json:"items"`
}

func runPredict(ctx context.Context, cfg config.Config, opts predictOptions, stdout io.Writer, logger *zap.Logger) error {
	system, err := units.ParseSystem(opts.Units)
	if err != nil {
		return err
	}

	items, err := loadManifest(opts.Manifest, logger)
	if err != nil {
		return err
	}

	store, err := storage.NewMemoryStorage(cfg.Catalog, cfg.CustomMargin)
	if err != nil {
		return fmt.Errorf("load box catalog: %w", err)
	}
	catalog, err := store.GetCatalog()
	if err != nil {
		return err
	}

	rec, err := application.NewPlanner(cfg).PredictBox(ctx, items, catalog)
	if err != nil {
		return fmt.Errorf("predict box: %w", err)
	}
	logger.Debug("box predicted", zap.String("box", rec.Box.Name), zap.Bool("custom", rec.Box.Custom))

	return writeJSONTo(stdout, predictOutput{
		Box:            units.PresentBox(rec.Box, system),
		RequiredVolume: units.PresentVolume(rec.Estimate.RequiredVolume, system),
		Envelope:       units.PresentDimensions(rec.Estimate.Envelope, system),
		VoidFill:       rec.Estimate.VoidFill,
		LengthUnit:     string(system.LengthUnit()),
		Items:          len(items),
	})
}

func runPack(ctx context.Context, cfg config.Config, opts packOptions, stdout io.Writer, logger *zap.Logger) error {
	system, err := units.ParseSystem(opts.Units)
	if err != nil {
		return err
	}

	box, err := parseBox(opts.Box, opts.VoidFill)
	if err != nil {
		return err
	}

	items, err := loadManifest(opts.Manifest, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	plan, err := application.NewPlanner(cfg).OptimizePack(ctx, items, box)
	if err != nil {
		return fmt.Errorf("optimize pack: %w", err)
	}
	logger.Info("pack optimized",
		zap.String("box", plan.Box.Name),
		zap.Int("placements", len(plan.Placements)),
		zap.Float64("space_utilization", plan.SpaceUtilization),
		zap.Duration("duration", time.Since(start)),
	)

	presented := units.PresentPlan(plan, system)
	if opts.Output == "" || opts.Output == "-" {
		return writeJSONTo(stdout, presented)
	}

	slip := export.SlipOptions{
		Reference:  strings.TrimSuffix(filepath.Base(opts.Manifest), filepath.Ext(opts.Manifest)),
		LengthUnit: string(system.LengthUnit()),
		MassUnit:   string(system.MassUnit()),
	}
	if err := writePlanFile(opts.Output, presented, slip); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "wrote %s (%d placements, utilization %.1f%%)\n",
		opts.Output, len(plan.Placements), plan.SpaceUtilization*100)
	return err
}

// parseBox reads a box given as LxWxH or NAME:LxWxH.
func parseBox(raw, voidFill string) (packing.Box, error) {
	boxes, err := config.ParseCatalog(raw)
	if err != nil {
		return packing.Box{}, fmt.Errorf("parse box: %w", err)
	}
	if len(boxes) != 1 {
		return packing.Box{}, fmt.Errorf("parse box: expected exactly one box, got %d", len(boxes))
	}

	fill := packing.VoidFill(voidFill)
	if fill != "" && !fill.Valid() {
		return packing.Box{}, fmt.Errorf("unknown void fill %q", voidFill)
	}
	return packing.NewBox(boxes[0].Name, boxes[0].Dimensions, fill, false), nil
}

func loadManifest(path string, logger *zap.Logger) ([]packing.Item, error) {
	result, err := manifest.ImportFile(path)
	if err != nil {
		return nil, err
	}
	for _, warning := range result.Warnings {
		logger.Warn("manifest warning", zap.String("file", path), zap.String("warning", warning))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	logger.Debug("manifest imported", zap.String("file", path), zap.Int("items", len(result.Items)))
	return result.Items, nil
}

func writePlanFile(path string, plan packing.PackingPlan, slip export.SlipOptions) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf", ".xlsx", ".json":
	default:
		return fmt.Errorf("unsupported output format %q, expected .json, .pdf or .xlsx", ext)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	switch ext {
	case ".pdf":
		err = export.WritePackingSlip(f, plan, slip)
	case ".xlsx":
		err = export.WritePlanXLSX(f, plan, slip)
	default:
		err = writeJSONTo(f, plan)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
