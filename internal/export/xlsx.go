package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/eugenenazirov/smartpack/internal/packing"
)

const (
	planSheet       = "Plan"
	placementsSheet = "Placements"
)

// placementHeaders labels the placement columns, with units where they apply.
func placementHeaders(opts SlipOptions) []string {
	l := " (" + opts.LengthUnit + ")"
	return []string{
		"Step", "Instance", "Label", "Item line",
		"X" + l, "Y" + l, "Z" + l, "Length" + l, "Width" + l, "Height" + l,
		"Orientation", "Padding" + l, "Weight (" + opts.MassUnit + ")", "Fragility",
	}
}

// WritePlanXLSX writes plan as a workbook with a summary sheet and one row
// per placement, in loading order.
func WritePlanXLSX(w io.Writer, plan packing.PackingPlan, opts SlipOptions) error {
	opts = opts.withDefaults()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", planSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(placementsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writePlanSheet(f, plan, opts, bold); err != nil {
		return err
	}
	if err := writePlacementsSheet(f, plan, opts, bold); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writePlanSheet(f *excelize.File, plan packing.PackingPlan, opts SlipOptions, bold int) error {
	name := plan.Box.Name
	if name == "" {
		name = "custom"
	}

	rows := [][]any{
		{"Reference", opts.Reference},
		{"Generated", opts.Generated.Format("2006-01-02 15:04:05")},
		{"Box", name},
		{"Custom box", plan.Box.Custom},
		{"Length (" + opts.LengthUnit + ")", plan.Box.Length},
		{"Width (" + opts.LengthUnit + ")", plan.Box.Width},
		{"Height (" + opts.LengthUnit + ")", plan.Box.Height},
		{"Volume (" + opts.LengthUnit + "3)", plan.Box.Volume},
		{"Void fill", string(plan.Box.VoidFill)},
		{"Space utilization", plan.SpaceUtilization},
		{"Estimated saving", plan.EstimatedCostSaving},
		{"Total weight (" + opts.MassUnit + ")", plan.TotalWeight},
		{"Volumetric weight (" + opts.MassUnit + ")", plan.VolumetricWeight},
		{},
		{"Instructions"},
	}
	for _, step := range plan.Instructions {
		rows = append(rows, []any{"", step})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(planSheet, cell, &row); err != nil {
			return fmt.Errorf("write plan row %d: %w", i+1, err)
		}
	}

	if err := f.SetCellStyle(planSheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	return f.SetColWidth(planSheet, "A", "B", 28)
}

func writePlacementsSheet(f *excelize.File, plan packing.PackingPlan, opts SlipOptions, bold int) error {
	headers := placementHeaders(opts)
	if err := f.SetSheetRow(placementsSheet, "A1", &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, p := range plan.Placements {
		row := []any{
			i + 1,
			p.Instance.ID,
			p.Instance.Label,
			p.Instance.ItemIndex + 1,
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Size.Length, p.Size.Width, p.Size.Height,
			p.Orientation.String(),
			p.Padding,
			p.Instance.Weight,
			p.Instance.Fragility,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(placementsSheet, cell, &row); err != nil {
			return fmt.Errorf("write placement %s: %w", p.Instance.ID, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(placementsSheet, "A1", lastCol+"1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(placementsSheet, "B", "C", 18); err != nil {
		return err
	}
	return f.SetPanes(placementsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
