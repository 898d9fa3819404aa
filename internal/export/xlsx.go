// Package export writes dashboard tables to a workbook, stacked vertically
// on one sheet with a title row above each table.
package export

import (
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"ticket-kpi-exporter/internal/metrics"
)

// SheetName is the name of the only sheet of an export.
const SheetName = "Resumen KPI"

// Percent is a cell written as a percentage. The value is in percent
// units, 12.5 reads 12.5%.
type Percent float64

// Table is one block of the sheet. Cells hold strings, numbers or Percent.
type Table struct {
	Title  string
	Header []string
	Rows   [][]interface{}
}

// Builder turns metric results into tables.
type Builder struct {
	months [12]string
}

// NewBuilder labels month columns with names; months missing from names
// are labelled by number.
func NewBuilder(names map[int]string) *Builder {
	b := &Builder{}
	for m := 1; m <= 12; m++ {
		if n, ok := names[m]; ok && n != "" {
			b.months[m-1] = n
		} else {
			b.months[m-1] = strconv.Itoa(m)
		}
	}
	return b
}

func (b *Builder) header(first string) []string {
	h := make([]string, 0, 14)
	h = append(h, first)
	h = append(h, b.months[:]...)
	return append(h, "Total")
}

func monthRow(label string, m metrics.Months) []interface{} {
	row := make([]interface{}, 0, 14)
	row = append(row, label)
	for _, v := range m {
		row = append(row, v)
	}
	return append(row, m.Total())
}

// Flow is the created against resolved table.
func (b *Builder) Flow(title string, f metrics.Flow) Table {
	return Table{
		Title:  title,
		Header: b.header("Tickets"),
		Rows: [][]interface{}{
			monthRow("Creados", f.Created),
			monthRow("Resueltos", f.Resolved),
		},
	}
}

// CrossTab writes one row per key, a totals row and the out of SLA row
// when the table has one.
func (b *Builder) CrossTab(title, keyHeader string, tab metrics.CrossTab) Table {
	t := Table{Title: title, Header: b.header(keyHeader)}
	for _, r := range tab.Rows {
		t.Rows = append(t.Rows, monthRow(r.Key, r.Months))
	}
	if len(tab.Rows) == 0 {
		return t
	}
	t.Rows = append(t.Rows, monthRow("Total", tab.Totals))
	if o := tab.OutOfSLA; o != nil {
		row := []interface{}{"% Fuera de SLA"}
		for _, v := range o.Months {
			row = append(row, Percent(v))
		}
		t.Rows = append(t.Rows, append(row, Percent(o.Total)))
	}
	return t
}

// Usage writes one client by month table per year.
func (b *Builder) Usage(title string, pivot []metrics.YearUsage) []Table {
	out := make([]Table, 0, len(pivot))
	for _, y := range pivot {
		t := Table{Title: title + " " + strconv.Itoa(y.Year), Header: b.header("Cliente")}
		for _, c := range y.Clients {
			row := []interface{}{c.Client}
			for _, v := range c.Months {
				row = append(row, v)
			}
			t.Rows = append(t.Rows, append(row, c.Total))
		}
		out = append(out, t)
	}
	return out
}

// Write renders the non-empty tables to w as an xlsx workbook.
func Write(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	percentFmt := "0.0%"
	percent, err := f.NewStyle(&excelize.Style{CustomNumFmt: &percentFmt})
	if err != nil {
		return err
	}

	row := 1
	for _, t := range tables {
		if len(t.Rows) == 0 {
			continue
		}
		title, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(SheetName, title, t.Title); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, title, title, bold); err != nil {
			return err
		}
		row++

		header, _ := excelize.CoordinatesToCellName(1, row)
		cells := make([]interface{}, len(t.Header))
		for i, h := range t.Header {
			cells[i] = h
		}
		if err := f.SetSheetRow(SheetName, header, &cells); err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(t.Header), row)
		if err := f.SetCellStyle(SheetName, header, last, bold); err != nil {
			return err
		}
		row++

		for _, r := range t.Rows {
			for col, v := range r {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if p, ok := v.(Percent); ok {
					if err := f.SetCellFloat(SheetName, cell, float64(p)/100, 4, 64); err != nil {
						return err
					}
					if err := f.SetCellStyle(SheetName, cell, cell, percent); err != nil {
						return err
					}
					continue
				}
				if err := f.SetCellValue(SheetName, cell, v); err != nil {
					return err
				}
			}
			row++
		}
		row++
	}
	if err := f.SetColWidth(SheetName, "A", "A", 28); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
