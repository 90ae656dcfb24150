package documents

import (
	"fmt"
	"io"
	"time"

	"github.com/linemk/farm-shop/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout      = "2006-01-02 15:04:05"
)

func addHeader(sheet *xlsx.Sheet, headers ...string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetValue(h)
	}
}

func setMoney(cell *xlsx.Cell, d decimal.Decimal) {
	cell.SetFloatWithFormat(d.InexactFloat64(), "0.00")
}

// WriteSalesReport пишет XLSX с заказами за период: лист по заказам и итоговая строка
func WriteSalesReport(w io.Writer, orders []*models.Order, from, to time.Time) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Ventas")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	period := sheet.AddRow()
	period.AddCell().SetValue("Periodo")
	period.AddCell().SetValue(from.Format("2006-01-02"))
	period.AddCell().SetValue(to.Format("2006-01-02"))

	addHeader(sheet, "ID", "Cliente", "Estado", "Productos", "Subtotal", "Envío", "Total", "Pago", "Fecha")

	var subtotal, shipping, total decimal.Decimal
	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetInt64(o.ID)
		row.AddCell().SetInt64(o.UserID)
		row.AddCell().SetValue(string(o.Status))
		units := 0
		for _, it := range o.Items {
			units += it.Quantity
		}
		row.AddCell().SetInt(units)
		setMoney(row.AddCell(), o.Subtotal)
		setMoney(row.AddCell(), o.ShippingCost)
		setMoney(row.AddCell(), o.Total)
		method := ""
		if o.PaymentDetails != nil {
			method = string(o.PaymentDetails.Method)
		}
		row.AddCell().SetValue(method)
		row.AddCell().SetValue(o.CreatedAt.Format(dateLayout))

		subtotal = subtotal.Add(o.Subtotal)
		shipping = shipping.Add(o.ShippingCost)
		total = total.Add(o.Total)
	}

	totals := sheet.AddRow()
	totals.AddCell().SetValue("TOTAL")
	totals.AddCell().SetValue("-")
	totals.AddCell().SetValue("-")
	totals.AddCell().SetInt(len(orders))
	setMoney(totals.AddCell(), subtotal)
	setMoney(totals.AddCell(), shipping)
	setMoney(totals.AddCell(), total)

	return file.Write(w)
}

// WriteInventoryReport пишет XLSX с остатками всех товаров
func WriteInventoryReport(w io.Writer, products []*models.Product) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Inventario")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	addHeader(sheet, "ID", "Nombre", "Categoría", "Precio", "Stock", "Stock mínimo", "Stock bajo", "Actualizado")
	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetInt64(p.ID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Category)
		setMoney(row.AddCell(), p.Price)
		row.AddCell().SetInt(p.Stock)
		row.AddCell().SetInt(p.MinStock)
		low := "NO"
		if p.LowStock() {
			low = "SI"
		}
		row.AddCell().SetValue(low)
		row.AddCell().SetValue(p.UpdatedAt.Format(dateLayout))
	}

	return file.Write(w)
}
