// Package export renders a historical ledger as a printable HTML report.
package export

import (
	"bytes"
	"fmt"
	"html/template"
)

// ReportData holds the data for the report template. Rows carry the
// executive lines only; the total row is stripped before rendering.
type ReportData struct {
	Filename string
	Header   []string
	Rows     [][]string
	RowCount int
}

var reportTemplate = template.Must(template.New("report").Parse(reportHTML))

// RenderReport renders a ledger table as a standalone HTML page.
func RenderReport(filename string, header []string, rows [][]string) ([]byte, error) {
	data := ReportData{
		Filename: filename,
		Header:   header,
		Rows:     rows,
		RowCount: len(rows),
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

const reportHTML = `<html>
<head>
  <title>VisitLogger Report</title>
  <style>
    body {
      font-family: 'Segoe UI', sans-serif;
      background: #f4f6f8;
      padding: 20px;
      color: #333;
    }
    h1 {
      color: #0078D4;
      margin-bottom: 10px;
      font-size: 20px;
    }
    h3 {
      margin-bottom: 10px;
      font-size: 16px;
    }
    table {
      width: 100%;
      border-collapse: collapse;
      background: #fff;
      box-shadow: 0 1px 4px rgba(0,0,0,0.05);
      font-size: 13px;
    }
    th, td {
      border: 1px solid #ccc;
      padding: 4px 8px;
      text-align: left;
      vertical-align: middle;
    }
    th {
      background-color: #e6f0ff;
      font-weight: 600;
    }
    .top-bar {
      display: flex;
      justify-content: space-between;
      align-items: center;
      margin-bottom: 10px;
    }
    .btn {
      background: #0078D4;
      color: white;
      padding: 6px 10px;
      border: none;
      border-radius: 4px;
      cursor: pointer;
      font-size: 12px;
    }
    .row-count {
      margin-bottom: 10px;
      font-size: 13px;
      color: #555;
    }
  </style>
</head>
<body>
  <div class="top-bar">
    <h1>VisitLogger Report</h1>
    <button class="btn" onclick="window.print()">Print</button>
  </div>
  <h3>{{.Filename}}</h3>

  <div class="row-count">Showing {{.RowCount}} rows</div>

  <table>
    <tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
    {{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
    {{end}}
  </table>
</body>
</html>
`
