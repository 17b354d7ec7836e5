package pipeline

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"

	"navledger/internal"
	"navledger/internal/dates"
	"navledger/internal/ingest"
	"navledger/internal/util"
)

type EmailExtraction struct {
	Observations    []internal.ValuationObservation
	Subject         string
	Text            string
	AttachmentNames []string
}

// ExtractObservationsFromEmailRaw pulls valuation observations out of a raw
// message: workbook attachments go through the regular valuation reader,
// HTML tables in the body and NAV disclosure PDFs are parsed directly.
func ExtractObservationsFromEmailRaw(raw []byte, headerRow int) (EmailExtraction, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return EmailExtraction{}, err
	}

	out := EmailExtraction{Subject: env.GetHeader("Subject"), Text: env.Text}
	if env.HTML != "" {
		out.Observations = append(out.Observations, parseHTMLValuationTables(env.HTML)...)
	}

	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		out.AttachmentNames = append(out.AttachmentNames, filename)
		lower := strings.ToLower(filename)

		if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
			extra, err := ingest.ParseValuationWorkbook(att.Content, headerRow, internal.SourceEmailXLSX, filename)
			if err == nil {
				out.Observations = append(out.Observations, extra...)
			}
		}
		if strings.HasSuffix(lower, ".pdf") {
			extra, err := parseValuationPDF(att.Content, filename)
			if err == nil {
				out.Observations = append(out.Observations, extra...)
			}
		}
	}

	for i := range out.Observations {
		out.Observations[i].RowID = i
	}
	return out, nil
}

func parseHTMLValuationTables(html string) []internal.ValuationObservation {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	out := []internal.ValuationObservation{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, strings.TrimSpace(cell.Text()))
		})

		codeIdx := findHeaderIndex(headers, []string{"产品代码"})
		unitIdx := findHeaderIndex(headers, []string{"最新单位净值", "单位净值"})
		dateIdx := findHeaderIndex(headers, []string{"规模计算日期", "汇总日期", "净值日期", "日期"})
		marketIdx := findHeaderIndex(headers, []string{"产品市值"})
		if unitIdx < 0 {
			return
		}
		if codeIdx < 0 {
			codeIdx = 0
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}

			obs := internal.ValuationObservation{
				Source:      internal.SourceEmailHTMLTable,
				SourceRef:   "body",
				ProductCode: pickCell(cells, codeIdx),
				UnitValue:   util.ParseDecimal(pickCell(cells, unitIdx)),
			}
			if dateIdx >= 0 {
				obs.ReportingDate = dates.Normalize(pickCell(cells, dateIdx))
			}
			if marketIdx >= 0 {
				obs.MarketValue = util.ParseDecimal(pickCell(cells, marketIdx))
			}
			if obs.ProductCode == "" {
				return
			}
			out = append(out, obs)
		})
	})

	return out
}

// pdfNavLine matches one disclosure line: product code, unit value, date.
var pdfNavLine = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9\-_]*)\s+(\d+\.\d+)\s+(\d{8}|\d{4}[-/]\d{1,2}[-/]\d{1,2})`)

func parseValuationPDF(content []byte, ref string) ([]internal.ValuationObservation, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []internal.ValuationObservation{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			m := pdfNavLine.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			out = append(out, internal.ValuationObservation{
				Source:        internal.SourceEmailPDF,
				SourceRef:     ref,
				ProductCode:   m[1],
				UnitValue:     util.ParseDecimal(m[2]),
				ReportingDate: dates.Normalize(m[3]),
			})
		}
	}
	return out, nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func findHeaderIndex(headers []string, probes []string) int {
	for _, probe := range probes {
		for i, h := range headers {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	return ""
}
