package parser

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

// qasColumns names the eight analyst-labelled flags, in worksheet column
// order, starting at column index 1 (column 0 is the domain key).
var qasColumns = []string{
	"p2p_magnet_links",
	"links_to_torrents",
	"links_to_osp",
	"search_feature",
	"domain_down_or_parked",
	"has_rss_feed",
	"requires_login",
	"has_forum_or_comments",
}

// AnalystQAS is one analyst-reviewed row of the QAS workbook for a domain.
// Flag values are carried verbatim as read from the sheet (typically "Y" or
// "N"); Y/N-to-bool normalization is a reporting concern, not a parse one.
type AnalystQAS struct {
	Domain string
	Date   string // the workbook's analysis date, stamped at ingest time
	Flags  map[string]string
}

// ParseAnalystQAS reads the second sheet (index 1) of an xlsx workbook and
// returns one AnalystQAS record per data row. Column 0 is the domain key;
// columns 1-8 map onto qasColumns in order. A row shorter than the full
// column set leaves the missing trailing flags as the empty string. date is
// stamped onto every row as-is; the workbook itself carries no per-row date.
func ParseAnalystQAS(data []byte, date string) ([]*AnalystQAS, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, parseErr("qas", "opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) < 2 {
		return nil, parseErr("qas", "workbook has fewer than two sheets")
	}

	rows, err := f.GetRows(sheets[1])
	if err != nil {
		return nil, parseErr("qas", "reading sheet %q: %w", sheets[1], err)
	}

	var out []*AnalystQAS
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			// header row, or a genuinely blank row
			continue
		}
		domain := row[0]
		if domain == "" {
			continue
		}
		rec := &AnalystQAS{Domain: domain, Date: date, Flags: make(map[string]string, len(qasColumns))}
		for j, name := range qasColumns {
			col := j + 1
			if col < len(row) {
				rec.Flags[name] = row[col]
			} else {
				rec.Flags[name] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// VertexPayloads projects the record onto its analyst_qas vertex, keyed by
// domain.
func (a *AnalystQAS) VertexPayloads() []Vertex {
	props := make(map[string]any, len(a.Flags)+1)
	for k, v := range a.Flags {
		props[k] = v
	}
	props["qas_date"] = a.Date
	return []Vertex{{
		Collection: "analyst_qas",
		Key:        a.Domain,
		Props:      props,
	}}
}

// EdgePayloads projects the record onto its single marked edge from the
// domain to its analyst_qas labels.
func (a *AnalystQAS) EdgePayloads() []Edge {
	return []Edge{{
		Name: "marked",
		Key:  a.Domain,
		From: ref("domain", a.Domain),
		To:   ref("analyst_qas", a.Domain),
	}}
}
