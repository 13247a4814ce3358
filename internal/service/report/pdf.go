package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Temutjin2k/ispeed/internal/domain/models"
	"github.com/Temutjin2k/ispeed/internal/domain/types"
	"github.com/Temutjin2k/ispeed/internal/service/monitor"
	"github.com/phpdave11/gofpdf"
)

type column struct {
	title string
	width float64
	align string
	value func(r models.ReportRow) string
}

var columns = []column{
	{"Driver", 45, "L", func(r models.ReportRow) string { return r.DriverName }},
	{"Destination", 45, "L", func(r models.ReportRow) string { return r.Destination }},
	{"Date", 25, "C", func(r models.ReportRow) string { return r.Date.Format("2006-01-02") }},
	{"Duration", 25, "C", func(r models.ReportRow) string { return r.Duration }},
	{"Alerts", 20, "R", func(r models.ReportRow) string { return strconv.Itoa(r.Alerts) }},
	{"Responses", 25, "R", func(r models.ReportRow) string { return strconv.Itoa(r.Responses) }},
	{"Score", 20, "R", func(r models.ReportRow) string { return fmt.Sprintf("%d pts", r.Score) }},
	{"Status", 30, "C", func(r models.ReportRow) string { return statusLabel(r.Status) }},
}

func statusLabel(s types.TripStatus) string {
	if s == types.TripInProgress {
		return "In progress"
	}
	return "Completed"
}

func renderPDF(rows []models.ReportRow, f models.TripFilters, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Trip report", false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "iSpeed - Trip report")
	pdf.Ln(11)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Generated: "+generated.Format("2006-01-02 15:04"))
	pdf.Ln(6)
	if desc := describeFilters(f); desc != "" {
		pdf.MultiCell(0, 6, "Filters: "+desc, "", "", false)
	}
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range columns {
			pdf.CellFormat(c.width, 8, c.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	header()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, r := range rows {
		if pdf.GetY()+7 > pageHeight-bottom-15 {
			pdf.AddPage()
			header()
		}
		for _, c := range columns {
			pdf.CellFormat(c.width, 7, tr(c.value(r)), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 6, summaryLine(rows))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func describeFilters(f models.TripFilters) string {
	var parts []string
	if f.DateFrom != nil {
		parts = append(parts, "from "+f.DateFrom.Format("2006-01-02"))
	}
	if f.DateTo != nil {
		parts = append(parts, "to "+f.DateTo.Format("2006-01-02"))
	}
	if f.Destination != "" {
		parts = append(parts, "destination "+f.Destination)
	}
	if f.Status != "" {
		parts = append(parts, "status "+f.Status.String())
	}
	return strings.Join(parts, ", ")
}

func summaryLine(rows []models.ReportRow) string {
	var alerts, responses int
	for _, r := range rows {
		alerts += r.Alerts
		responses += r.Responses
	}
	rate := monitor.Effectiveness(alerts, responses)
	return fmt.Sprintf("Trips: %d   Alerts: %d   Responses: %d   Response rate: %d%%", len(rows), alerts, responses, rate)
}
