package orders

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Bestellingen"

var exportHeaders = []string{
	"Bestelnummer", "Datum", "Status", "Betaalstatus", "Naam", "E-mail", "Telefoon", "Bedrijf",
	"Adres", "Postcode", "Plaats", "Land", "Subtotaal", "Verzending", "Totaal", "Track & trace",
}

// ExportXLSX writes orders as a spreadsheet, one row per order.
func ExportXLSX(w io.Writer, orders []Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for col, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for row, o := range orders {
		values := []interface{}{
			o.Number,
			o.CreatedAt.Format("2006-01-02 15:04"),
			o.Status.Label(),
			o.PaymentStatus,
			o.Customer.Name,
			o.Email,
			o.Phone,
			o.Company,
			o.Address.Lines()[0],
			o.PostalCode,
			o.City,
			o.Country,
			o.Subtotal().InexactFloat64(),
			o.Shipping().InexactFloat64(),
			o.Total().InexactFloat64(),
			o.TrackingCode,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(exportSheet, cell, value); err != nil {
				return fmt.Errorf("write order %s: %w", o.Number, err)
			}
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	if err := f.SetCellStyle(exportSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write spreadsheet: %w", err)
	}
	return nil
}
