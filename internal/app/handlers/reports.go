package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/linemk/farm-shop/internal/documents"
	"github.com/linemk/farm-shop/internal/service"
)

// SalesReportHandler XLSX с заказами за ?from=&to= (YYYY-MM-DD, to включительно).
// Без параметров - последние 30 дней.
func SalesReportHandler(log *slog.Logger, reports service.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SalesReport"
		logger := log.With(slog.String("op", op))

		today := time.Now().UTC().Truncate(24 * time.Hour)
		from, to := today.AddDate(0, 0, -30), today

		if d, err := queryDate(r, "from"); err != nil {
			badRequest(w, err.Error())
			return
		} else if d != nil {
			from = *d
		}
		if d, err := queryDate(r, "to"); err != nil {
			badRequest(w, err.Error())
			return
		} else if d != nil {
			to = *d
		}

		data, err := reports.Sales(r.Context(), from, to.AddDate(0, 0, 1))
		if err != nil {
			respondError(w, logger, err)
			return
		}
		writeXLSX(w, logger, fmt.Sprintf("ventas_%s_%s.xlsx", from.Format(dateLayout), to.Format(dateLayout)), data)
	}
}

func InventoryReportHandler(log *slog.Logger, reports service.ReportService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.InventoryReport"
		logger := log.With(slog.String("op", op))

		data, err := reports.Inventory(r.Context())
		if err != nil {
			respondError(w, logger, err)
			return
		}
		writeXLSX(w, logger, fmt.Sprintf("inventario_%s.xlsx", time.Now().UTC().Format(dateLayout)), data)
	}
}

func writeXLSX(w http.ResponseWriter, logger *slog.Logger, filename string, data []byte) {
	w.Header().Set("Content-Type", documents.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write report", slog.Any("error", err))
	}
}
