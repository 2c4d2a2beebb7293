package controllers

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
	"go-storefront/services"
)

var exportHeaders = []string{
	"ID", "Name", "Description", "Price", "Stock",
	"CategoryID", "Images", "Rating", "TotalReviews", "CreatedAt",
}

func productWorkbook(products []models.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, fmt.Errorf("add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetString(h)
	}
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID.Hex())
		row.AddCell().SetString(p.Name)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetString(p.CategoryID.Hex())
		row.AddCell().SetString(strings.Join(p.Images, ","))
		row.AddCell().SetFloat(p.Rating)
		row.AddCell().SetInt(p.TotalReviews)
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}

// headerKey folds "Category ID", "categoryId" and "CATEGORYID" together.
func headerKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

// readProductRows parses the first sheet. Columns are located by header
// name, so an exported workbook can be imported again. Blank rows are
// ignored.
func readProductRows(r io.ReaderAt, size int64) ([]services.ImportRow, error) {
	file, err := xlsx.OpenReaderAt(r, size)
	if err != nil {
		return nil, models.Invalid("file is not a readable xlsx workbook")
	}
	if len(file.Sheets) == 0 || len(file.Sheets[0].Rows) < 1 {
		return nil, models.Invalid("workbook is empty or missing header row")
	}
	sheet := file.Sheets[0]

	columns := map[string]int{}
	for i, cell := range sheet.Rows[0].Cells {
		columns[headerKey(cell.String())] = i
	}
	for _, required := range []string{"name", "price", "categoryid"} {
		if _, ok := columns[required]; !ok {
			return nil, models.Invalid("workbook is missing the %s column", required)
		}
	}

	rows := []services.ImportRow{}
	for i := 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		if row == nil {
			continue
		}
		get := func(key string) string {
			idx, ok := columns[key]
			if !ok || idx >= len(row.Cells) {
				return ""
			}
			return strings.TrimSpace(row.Cells[idx].String())
		}
		if blankRow(row) {
			continue
		}

		in, err := parseProductRow(get)
		rows = append(rows, services.ImportRow{Line: i + 1, Product: in, ParseErr: err})
	}
	return rows, nil
}

func blankRow(row *xlsx.Row) bool {
	for _, c := range row.Cells {
		if strings.TrimSpace(c.String()) != "" {
			return false
		}
	}
	return true
}

func parseProductRow(get func(string) string) (services.ProductInput, error) {
	in := services.ProductInput{
		Name:        get("name"),
		Description: get("description"),
	}

	price, err := decimal.NewFromString(get("price"))
	if err != nil {
		return in, fmt.Errorf("price %q is not a number", get("price"))
	}
	in.Price = price

	if raw := get("stock"); raw != "" {
		stock, err := parseWholeNumber(raw)
		if err != nil {
			return in, fmt.Errorf("stock %q is not a whole number", raw)
		}
		in.Stock = stock
	}

	categoryID, err := primitive.ObjectIDFromHex(get("categoryid"))
	if err != nil {
		return in, fmt.Errorf("categoryId %q is not a valid id", get("categoryid"))
	}
	in.CategoryID = categoryID

	if raw := get("images"); raw != "" {
		for _, img := range strings.Split(raw, ",") {
			if img = strings.TrimSpace(img); img != "" {
				in.Images = append(in.Images, img)
			}
		}
	}
	return in, nil
}

// parseWholeNumber accepts "3" and the "3.0" spreadsheets produce for
// numeric cells.
func parseWholeNumber(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("not a whole number")
	}
	return int(f), nil
}
