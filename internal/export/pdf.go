package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/eugenenazirov/smartpack/internal/packing"
)

// itemColor is an RGB fill used for one item line in the layout drawing.
type itemColor struct {
	R, G, B int
}

var itemColors = []itemColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 portrait in mm).
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	contentWidth = pageWidth - marginLeft - marginRight
	qrSize       = 32.0
	drawHeight   = 80.0
	rowHeight    = 6.0
)

// SlipOptions carries presentation details of a packing slip.
type SlipOptions struct {
	// Reference identifies the request, e.g. the request id. Encoded in the QR code.
	Reference string
	// LengthUnit and MassUnit label dimensions and weights; default cm and kg.
	LengthUnit string
	MassUnit   string
	// Generated is printed in the header; zero means now.
	Generated time.Time
}

func (o SlipOptions) withDefaults() SlipOptions {
	if o.LengthUnit == "" {
		o.LengthUnit = "cm"
	}
	if o.MassUnit == "" {
		o.MassUnit = "kg"
	}
	if o.Generated.IsZero() {
		o.Generated = time.Now().UTC()
	}
	return o
}

// SlipSummary is the payload encoded into the slip's QR code.
type SlipSummary struct {
	Reference   string  `json:"ref,omitempty"`
	Box         string  `json:"box"`
	Dimensions  string  `json:"dims"`
	VoidFill    string  `json:"void_fill"`
	Items       int     `json:"items"`
	Utilization float64 `json:"utilization"`
	Weight      float64 `json:"weight"`
}

// Summarize builds the QR payload for a plan.
func Summarize(plan packing.PackingPlan, reference string) SlipSummary {
	name := plan.Box.Name
	if name == "" {
		name = "custom"
	}
	return SlipSummary{
		Reference:   reference,
		Box:         name,
		Dimensions:  formatDims(plan.Box.Dimensions()),
		VoidFill:    string(plan.Box.VoidFill),
		Items:       len(plan.Placements),
		Utilization: math.Round(plan.SpaceUtilization*1000) / 1000,
		Weight:      plan.TotalWeight,
	}
}

// WritePackingSlip renders plan as a PDF packing slip and writes it to w.
// The first page carries the summary, instructions, a top view of the box
// and a QR code; the placement table follows and continues over as many
// pages as needed.
func WritePackingSlip(w io.Writer, plan packing.PackingPlan, opts SlipOptions) error {
	if len(plan.Placements) == 0 {
		return fmt.Errorf("no placements to export")
	}
	opts = opts.withDefaults()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Packing slip", false)
	pdf.SetCreator("smartpack", false)
	pdf.SetAutoPageBreak(false, marginBottom)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	y := renderHeader(pdf, plan, opts)
	if err := renderQRCode(pdf, plan, opts); err != nil {
		return err
	}
	y = renderSummary(pdf, plan, opts, y)
	y = renderInstructions(pdf, plan, tr, y)
	y = renderTopView(pdf, plan, opts, y)
	renderPlacementTable(pdf, plan, opts, tr, y)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func renderHeader(pdf *fpdf.Fpdf, plan packing.PackingPlan, opts SlipOptions) float64 {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(contentWidth-qrSize, 9, "Packing Slip", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.SetXY(marginLeft, marginTop+9)
	meta := fmt.Sprintf("Generated %s", opts.Generated.Format(time.RFC3339))
	if opts.Reference != "" {
		meta += " | Ref " + opts.Reference
	}
	pdf.CellFormat(contentWidth-qrSize, 5, meta, "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+16, pageWidth-marginRight-qrSize-4, marginTop+16)
	return marginTop + 20
}

func renderQRCode(pdf *fpdf.Fpdf, plan packing.PackingPlan, opts SlipOptions) error {
	payload, err := json.Marshal(Summarize(plan, opts.Reference))
	if err != nil {
		return fmt.Errorf("marshal slip summary: %w", err)
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("generate QR code: %w", err)
	}

	pdf.RegisterImageOptionsReader("slip_qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	pdf.ImageOptions("slip_qr", pageWidth-marginRight-qrSize, marginTop, qrSize, qrSize, false,
		fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return nil
}

func renderSummary(pdf *fpdf.Fpdf, plan packing.PackingPlan, opts SlipOptions, y float64) float64 {
	name := plan.Box.Name
	if plan.Box.Custom || name == "" {
		name = "Custom"
	}

	rows := []struct {
		label string
		value string
	}{
		{"Box", fmt.Sprintf("%s (%s %s)", name, formatDims(plan.Box.Dimensions()), opts.LengthUnit)},
		{"Box volume", fmt.Sprintf("%.1f %s3", plan.Box.Volume, opts.LengthUnit)},
		{"Void fill", plan.Box.VoidFill.Label()},
		{"Items", fmt.Sprintf("%d", len(plan.Placements))},
		{"Space utilization", fmt.Sprintf("%.1f%%", plan.SpaceUtilization*100)},
		{"Estimated saving", fmt.Sprintf("%.2f", plan.EstimatedCostSaving)},
		{"Total weight", fmt.Sprintf("%.2f %s", plan.TotalWeight, opts.MassUnit)},
		{"Volumetric weight", fmt.Sprintf("%.2f %s", plan.VolumetricWeight, opts.MassUnit)},
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Summary", "", 0, "L", false, 0, "")
	y += 8

	for _, row := range rows {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(45, 5.5, row.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(90, 5.5, row.value, "", 0, "L", false, 0, "")
		y += 5.5
	}
	return y + 4
}

func renderInstructions(pdf *fpdf.Fpdf, plan packing.PackingPlan, tr func(string) string, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Instructions", "", 0, "L", false, 0, "")
	y += 8

	pdf.SetFont("Helvetica", "", 10)
	for i, step := range plan.Instructions {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(contentWidth-5, 5.5, tr(fmt.Sprintf("%d. %s", i+1, step)), "", 0, "L", false, 0, "")
		y += 5.5
	}
	return y + 4
}

// renderTopView draws the x-y projection of the box. Placements are painted
// bottom layer first so upper items stay visible.
func renderTopView(pdf *fpdf.Fpdf, plan packing.PackingPlan, opts SlipOptions, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Top view", "", 0, "L", false, 0, "")
	y += 9

	box := plan.Box.Dimensions()
	scale := math.Min((contentWidth-10)/box.Length, drawHeight/box.Width)
	canvasW := box.Length * scale
	canvasH := box.Width * scale
	offsetX := marginLeft + (contentWidth-canvasW)/2
	offsetY := y

	pdf.SetFillColor(222, 196, 150)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	order := make([]int, len(plan.Placements))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return plan.Placements[order[a]].Position.Z < plan.Placements[order[b]].Position.Z
	})

	for _, idx := range order {
		p := plan.Placements[idx]
		col := itemColors[p.Instance.ItemIndex%len(itemColors)]
		pw := p.Size.Length * scale
		ph := p.Size.Width * scale
		px := offsetX + p.Position.X*scale
		py := offsetY + p.Position.Y*scale

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "FD")

		tag := fmt.Sprintf("%d", idx+1)
		pdf.SetFont("Helvetica", "", 7)
		if tw := pdf.GetStringWidth(tag); tw < pw-1 && ph > 4 {
			pdf.SetXY(px+(pw-tw)/2, py+ph/2-2)
			pdf.CellFormat(tw, 4, tag, "", 0, "C", false, 0, "")
		}
	}

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)
	lengthLabel := fmt.Sprintf("%g %s", round2(box.Length), opts.LengthUnit)
	lw := pdf.GetStringWidth(lengthLabel)
	pdf.SetXY(offsetX+(canvasW-lw)/2, offsetY+canvasH+1)
	pdf.CellFormat(lw, 4, lengthLabel, "", 0, "C", false, 0, "")

	widthLabel := fmt.Sprintf("%g %s", round2(box.Width), opts.LengthUnit)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	ww := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX-3-ww/2, offsetY+canvasH/2-2)
	pdf.CellFormat(ww, 4, widthLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()
	pdf.SetTextColor(0, 0, 0)

	return offsetY + canvasH + 10
}

var tableColumns = []struct {
	header string
	width  float64
}{
	{"#", 10},
	{"Item", 48},
	{"Size", 40},
	{"Position (x, y, z)", 42},
	{"Orient.", 16},
	{"Weight", 24},
}

func renderPlacementTable(pdf *fpdf.Fpdf, plan packing.PackingPlan, opts SlipOptions, tr func(string) string, y float64) {
	if y+3*rowHeight > pageHeight-marginBottom {
		pdf.AddPage()
		y = marginTop
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Loading sequence", "", 0, "L", false, 0, "")
	y += 8
	y = renderTableHeader(pdf, y)

	pdf.SetFont("Helvetica", "", 8)
	for i, p := range plan.Placements {
		if y+rowHeight > pageHeight-marginBottom {
			pdf.AddPage()
			y = renderTableHeader(pdf, marginTop)
			pdf.SetFont("Helvetica", "", 8)
		}

		name := p.Instance.ID
		if p.Instance.Label != "" {
			name = p.Instance.Label + " (" + p.Instance.ID + ")"
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			tr(truncate(pdf, name, tableColumns[1].width-2)),
			fmt.Sprintf("%s %s", formatDims(p.Size), opts.LengthUnit),
			fmt.Sprintf("%g, %g, %g", round2(p.Position.X), round2(p.Position.Y), round2(p.Position.Z)),
			p.Orientation.String(),
			fmt.Sprintf("%.2f %s", p.Instance.Weight, opts.MassUnit),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		x := marginLeft
		for j, cell := range cells {
			pdf.SetXY(x, y)
			pdf.CellFormat(tableColumns[j].width, rowHeight, cell, "1", 0, "C", true, 0, "")
			x += tableColumns[j].width
		}
		y += rowHeight
	}
}

func renderTableHeader(pdf *fpdf.Fpdf, y float64) float64 {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	x := marginLeft
	for _, col := range tableColumns {
		pdf.SetXY(x, y)
		pdf.CellFormat(col.width, rowHeight, col.header, "1", 0, "C", true, 0, "")
		x += col.width
	}
	return y + rowHeight
}

func truncate(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func formatDims(d packing.Dimensions) string {
	return fmt.Sprintf("%gx%gx%g", round2(d.Length), round2(d.Width), round2(d.Height))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
