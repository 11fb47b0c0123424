// Package report renders downloadable artifacts for a finished test:
// a PDF feedback report and a QR code pointing at the shareable results page.
package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// ReportData contains everything the PDF needs.
type ReportData struct {
	TestTitle   string
	DisplayName string
	OverallBand float64
	PartBands   map[string]float64
	Summary     string
	Items       []ReportItem
}

// ReportItem is one answered question with its scores.
type ReportItem struct {
	PartNumber    int
	QuestionText  string
	Transcript    string
	Fluency       float64
	Lexical       float64
	Grammar       float64
	Pronunciation float64
	Overall       float64
	Feedback      string
}

// GeneratePDF renders the feedback report and returns the PDF bytes.
func GeneratePDF(data ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 10, "Speaking Test Feedback Report", "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 12)
	info := fmt.Sprintf("Test: %s\nCandidate: %s\nOverall band: %.1f\n",
		data.TestTitle, data.DisplayName, data.OverallBand)
	pdf.MultiCell(0, 7, info, "", "L", false)

	if len(data.PartBands) > 0 {
		parts := make([]string, 0, len(data.PartBands))
		for part := range data.PartBands {
			parts = append(parts, part)
		}
		sort.Strings(parts)
		for _, part := range parts {
			pdf.MultiCell(0, 7, fmt.Sprintf("Part %s band: %.1f", part, data.PartBands[part]), "", "L", false)
		}
	}
	pdf.Ln(2)

	if data.Summary != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, data.Summary, "", "L", false)
		pdf.Ln(4)
	}

	for i, item := range data.Items {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.MultiCell(0, 7, fmt.Sprintf("Question %d (Part %d):", i+1, item.PartNumber), "", "L", false)

		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, item.QuestionText, "", "L", false)
		pdf.Ln(1)

		scoreLine := fmt.Sprintf(
			"Fluency: %.1f   Lexical: %.1f   Grammar: %.1f   Pronunciation: %.1f   Overall: %.1f",
			item.Fluency, item.Lexical, item.Grammar, item.Pronunciation, item.Overall)
		pdf.MultiCell(0, 6, scoreLine, "", "L", false)

		if item.Feedback != "" {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, item.Feedback, "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		}

		if item.Transcript != "" {
			transcript := item.Transcript
			// Keep the report readable for very long monologue answers
			if len(transcript) > 1200 {
				transcript = transcript[:1200] + "..."
			}
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 5, "Transcript: "+transcript, "", "L", false)
			pdf.SetFont("Helvetica", "", 11)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF report: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateShareQR returns a PNG QR code encoding the shareable results URL.
func GenerateShareQR(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("share URL cannot be empty")
	}
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
