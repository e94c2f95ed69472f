package htmlutil

import (
	"sipdbot/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

type Table struct {
	Caption string
	Headers []string
	Rows    [][]string
}

func cellText(sel *goquery.Selection) string {
	return textutil.CollapseWhitespace(GetText(sel.Nodes[0]))
}

func cellTexts(row *goquery.Selection) []string {
	var cells []string
	row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, cellText(cell))
	})
	return cells
}

// ExtractTables parses every <table> in the document into a header+rows
// record. Headers come from the first <thead> row; tables without a
// <thead> fall back to their first row. A table with no rows at all
// yields zero rows rather than an error, the LPJ queue renders an empty
// tbody when there is nothing left to verify.
func ExtractTables(doc *goquery.Document) []Table {
	var tables []Table

	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		t := Table{}

		caption := sel.Find("caption").First()
		if len(caption.Nodes) > 0 {
			t.Caption = cellText(caption)
		}

		headerRow := sel.Find("thead tr").First()
		var bodyRows *goquery.Selection
		if len(headerRow.Nodes) > 0 {
			bodyRows = sel.Find("tbody tr")
			if len(bodyRows.Nodes) == 0 {
				bodyRows = sel.Find("tr").NotSelection(sel.Find("thead tr"))
			}
		} else {
			// without a thead the first row doubles as the header
			allRows := sel.Find("tr")
			bodyRows = allRows
			if len(allRows.Nodes) > 0 {
				headerRow = allRows.First()
				bodyRows = allRows.Slice(1, goquery.ToEnd)
			}
		}

		if len(headerRow.Nodes) > 0 {
			t.Headers = cellTexts(headerRow)
		}
		bodyRows.Each(func(_ int, row *goquery.Selection) {
			cells := cellTexts(row)
			if len(cells) == 0 {
				return
			}
			t.Rows = append(t.Rows, cells)
		})

		tables = append(tables, t)
	})

	return tables
}
