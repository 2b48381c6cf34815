package spreadsheet

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/outletops/maintenance-tickets/internal/service"
)

// Column headers of the outlet account workbook.
const (
	headerEmail    = "Email"
	headerPassword = "Password"
	headerOutlet   = "Outlet Name"
)

// ErrMissingColumn is returned when the header row lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// ReadAccounts reads outlet accounts from the first sheet. Rows without an
// email or outlet name are skipped.
func ReadAccounts(r io.Reader) ([]service.AccountInput, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: workbook is empty", ErrMissingColumn)
	}

	index := map[string]int{}
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make(map[string]int, 3)
	for _, name := range []string{headerEmail, headerPassword, headerOutlet} {
		i, ok := index[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
		cols[name] = i
	}

	accounts := make([]service.AccountInput, 0, len(rows)-1)
	for _, row := range rows[1:] {
		input := service.AccountInput{
			Email:    cell(row, cols[headerEmail]),
			Password: cell(row, cols[headerPassword]),
			Outlet:   cell(row, cols[headerOutlet]),
		}
		if input.Email == "" || input.Outlet == "" {
			continue
		}
		accounts = append(accounts, input)
	}
	return accounts, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
