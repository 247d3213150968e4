// Package export renders packing plans into printable and spreadsheet
// formats: a PDF packing slip with a top-view layout and a QR code, and an
// XLSX workbook listing every placement.
package export
