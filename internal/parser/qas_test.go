package parser

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildQASWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Summary")
	f.NewSheet("Analyst")

	header := append([]string{"Domain"}, qasColumns...)
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Analyst", cell, h)
	}
	row := []string{"example.com", "Y", "N", "N", "Y", "N", "Y", "N", "Y"}
	for i, v := range row {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue("Analyst", cell, v)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("writing workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParseAnalystQAS(t *testing.T) {
	records, err := ParseAnalystQAS(buildQASWorkbook(t), "2017-08-01")
	if err != nil {
		t.Fatalf("ParseAnalystQAS: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Domain != "example.com" {
		t.Errorf("Domain = %q, want example.com", rec.Domain)
	}
	if rec.Date != "2017-08-01" {
		t.Errorf("Date = %q, want 2017-08-01", rec.Date)
	}
	if rec.Flags["p2p_magnet_links"] != "Y" {
		t.Errorf("p2p_magnet_links = %q, want Y", rec.Flags["p2p_magnet_links"])
	}
	if rec.Flags["has_forum_or_comments"] != "Y" {
		t.Errorf("has_forum_or_comments = %q, want Y", rec.Flags["has_forum_or_comments"])
	}
	if len(rec.Flags) != len(qasColumns) {
		t.Fatalf("got %d flags, want %d", len(rec.Flags), len(qasColumns))
	}
}

func TestAnalystQASVertexAndEdgePayloads(t *testing.T) {
	rec := &AnalystQAS{Domain: "example.com", Flags: map[string]string{"has_rss_feed": "Y"}}
	verts := rec.VertexPayloads()
	if len(verts) != 1 || verts[0].Key != "example.com" {
		t.Fatalf("VertexPayloads = %+v, want single vertex keyed by domain", verts)
	}
	edges := rec.EdgePayloads()
	if len(edges) != 1 || edges[0].Name != "marked" {
		t.Fatalf("EdgePayloads = %+v, want single marked edge", edges)
	}
}
