package spreadsheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/outletops/maintenance-tickets/internal/domain"
)

const (
	// ExportFileName is offered to browsers downloading the export.
	ExportFileName = "maintenance_tickets.xlsx"
	// ContentType of xlsx workbooks.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	ticketSheet     = "Tickets"
	timestampLayout = "02/01/2006 15:04"
	missingValue    = "-"
)

// ExportHeader is the first row of the export sheet.
var ExportHeader = []string{"Outlet", "Issue Type", "Description", "Status", "Created At", "Started At", "Confirmed by Outlet"}

// ExportRow renders one ticket in the export column order.
func ExportRow(ticket domain.Ticket, loc *time.Location) []string {
	return []string{
		ticket.Outlet,
		string(ticket.IssueType),
		ticket.Description,
		string(ticket.Status),
		FormatTimestamp(ticket.CreatedAt, loc),
		FormatTimestamp(ticket.StartedAt, loc),
		FormatTimestamp(ticket.OutletConfirmedAt, loc),
	}
}

// FormatTimestamp renders DD/MM/YYYY HH:MM in loc, or "-" when unset.
func FormatTimestamp(ts *time.Time, loc *time.Location) string {
	if ts == nil {
		return missingValue
	}
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format(timestampLayout)
}

// WriteTickets writes one sheet with a header row and one row per ticket in
// the given order.
func WriteTickets(w io.Writer, tickets []domain.Ticket, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ticketSheet); err != nil {
		return err
	}
	if err := writeRow(f, 1, ExportHeader); err != nil {
		return err
	}
	for i, ticket := range tickets {
		if err := writeRow(f, i+2, ExportRow(ticket, loc)); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(ticketSheet, "A", "B", 18); err != nil {
		return err
	}
	if err := f.SetColWidth(ticketSheet, "C", "C", 48); err != nil {
		return err
	}
	if err := f.SetColWidth(ticketSheet, "D", "G", 20); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(ticketSheet, cell, &cells); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
