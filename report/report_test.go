package report

import (
	"bytes"
	"strings"
	"testing"
)

func TestGeneratePDF(t *testing.T) {
	data := ReportData{
		TestTitle:   "General Speaking Practice 1",
		DisplayName: "taylor",
		OverallBand: 6.5,
		PartBands:   map[string]float64{"1": 6.0, "2": 7.0, "3": 6.5},
		Summary:     "Confident delivery with occasional grammar slips.",
		Items: []ReportItem{
			{
				PartNumber:    1,
				QuestionText:  "Where do you live?",
				Transcript:    "I live in a small flat near the city centre.",
				Fluency:       6.0,
				Lexical:       6.5,
				Grammar:       6.0,
				Pronunciation: 6.5,
				Overall:       6.5,
				Feedback:      "Expand answers with reasons and examples.",
			},
			{
				PartNumber:   2,
				QuestionText: "Describe a book you recently read.",
				Transcript:   strings.Repeat("It was a long story about a family. ", 60),
				Overall:      7.0,
			},
		},
	}

	pdf, err := GeneratePDF(data)
	if err != nil {
		t.Fatalf("GeneratePDF failed: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output does not start with PDF magic, got %q", pdf[:min(8, len(pdf))])
	}
	if len(pdf) < 1000 {
		t.Errorf("PDF suspiciously small: %d bytes", len(pdf))
	}
}

func TestGeneratePDFEmptyReport(t *testing.T) {
	pdf, err := GeneratePDF(ReportData{TestTitle: "t", DisplayName: "u"})
	if err != nil {
		t.Fatalf("GeneratePDF failed on empty report: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output does not start with PDF magic")
	}
}

func TestGenerateShareQR(t *testing.T) {
	png, err := GenerateShareQR("https://app.example.com/tests/abc/results", 0)
	if err != nil {
		t.Fatalf("GenerateShareQR failed: %v", err)
	}
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Errorf("output is not a PNG")
	}
}

func TestGenerateShareQREmptyURL(t *testing.T) {
	if _, err := GenerateShareQR("", 256); err == nil {
		t.Errorf("expected error for empty URL")
	}
}
