package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/models"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// CierreItem is one line of the day-close listing: one payable category of
// one payment. PagoKey and MontoPago carry the payment's identity and total
// so multi-category payments can be counted once.
type CierreItem struct {
	PagoKey           string          `json:"pagoKey"`
	Modulo            string          `json:"modulo"`
	Empresa           string          `json:"empresa"`
	Codigo            string          `json:"codigo"`
	PropietarioNombre string          `json:"propietarioNombre"`
	FechaDeuda        string          `json:"fechaDeuda"`
	Monto             decimal.Decimal `json:"monto"`     // this category's share
	MontoPago         decimal.Decimal `json:"montoPago"` // the whole payment
}

// GetCierreItems lists every payment applied during the calendar day, one
// item per (category x payment), ordered by unit code for the printout.
func GetCierreItems(ctx context.Context, fecha string) ([]CierreItem, error) {
	desde, hasta, err := utils.DayBounds(fecha)
	if err != nil {
		return nil, utils.NewValidationError("fecha", "expected YYYY-MM-DD")
	}

	aplicados, err := models.GetPagosAplicadosEnRango(ctx, desde, hasta)
	if err != nil {
		return nil, err
	}

	var items []CierreItem
	for _, apl := range aplicados {
		nombre := resolvePropietario(ctx, apl)
		for modulo, monto := range map[string]decimal.Decimal{
			"administracion": apl.Montos.Administracion,
			"minutosBase":    apl.Montos.MinutosBase,
			"minutosAtraso":  apl.Montos.MinutosAtraso,
			"multas":         apl.Montos.Multas,
		} {
			if monto.IsZero() {
				continue
			}
			items = append(items, CierreItem{
				PagoKey:           apl.PagoId,
				Modulo:            modulo,
				Empresa:           apl.Empresa,
				Codigo:            apl.Codigo,
				PropietarioNombre: nombre,
				FechaDeuda:        apl.Fecha,
				Monto:             monto,
				MontoPago:         apl.MontoPago,
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Codigo != items[j].Codigo {
			return items[i].Codigo < items[j].Codigo
		}
		return items[i].Modulo < items[j].Modulo
	})
	return items, nil
}

// resolvePropietario resolves the display name for a close line: catalog
// first, legacy owner as fallback. Absence is expected for migrated data and
// never fatal.
func resolvePropietario(ctx context.Context, apl *models.PagoAplicado) string {
	unidad, err := models.GetUnidadById(ctx, apl.UnidadDiaId)
	if err == nil && unidad.PropietarioNombre != "" {
		return unidad.PropietarioNombre
	}

	pago, err := models.GetPago(ctx, apl.PagoId)
	if err != nil || pago.UsuarioLegacyId == "" {
		return ""
	}
	usuario, err := models.GetLegacyUsuario(ctx, pago.UsuarioLegacyId)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			config.LogError(config.GetLogger(), "cierreCajaWorkflow", "resolvePropietario", apl.PagoId, nil, err)
		}
		return ""
	}
	return usuario.Nombre
}

// ComputeTotal sums the day's income counting each payment exactly once:
// items are deduplicated by PagoKey (first occurrence wins) and each unique
// payment contributes its total amount, not its per-category shares. A
// payment split across several categories therefore never double-counts.
func ComputeTotal(items []CierreItem) decimal.Decimal {
	seen := make(map[string]bool, len(items))
	total := decimal.Zero
	for _, item := range items {
		if seen[item.PagoKey] {
			continue
		}
		seen[item.PagoKey] = true
		total = total.Add(item.MontoPago)
	}
	return total
}

// PersistCierre writes the close snapshot for a date: total income (deduped),
// listed manual expenses, net balance, and the exported spreadsheet artifact.
// Re-closing the same date merges over the previous snapshot.
func PersistCierre(ctx context.Context, fecha string, items []CierreItem, egresos []models.CierreCajaEgreso) (*models.CierreCaja, error) {
	if _, _, err := utils.DayBounds(fecha); err != nil {
		return nil, utils.NewValidationError("fecha", "expected YYYY-MM-DD")
	}

	totalIngresos := ComputeTotal(items)
	totalEgresos := decimal.Zero
	for _, e := range egresos {
		totalEgresos = totalEgresos.Add(e.Monto)
	}

	numPagos := 0
	seen := map[string]bool{}
	for _, item := range items {
		if !seen[item.PagoKey] {
			seen[item.PagoKey] = true
			numPagos++
		}
	}

	export, err := buildCierreExport(fecha, items, egresos, totalIngresos, totalEgresos)
	if err != nil {
		return nil, err
	}
	archivoUrl, err := utils.UploadBytesToGCS(ctx, cierreObjectName(fecha),
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export)
	if err != nil {
		return nil, err
	}

	cierre := &models.CierreCaja{
		Fecha:         fecha,
		TotalIngresos: totalIngresos,
		TotalEgresos:  totalEgresos,
		Balance:       totalIngresos.Sub(totalEgresos),
		NumPagos:      numPagos,
		ArchivoUrl:    archivoUrl,
	}
	if err := models.UpsertCierreCaja(ctx, cierre, egresos); err != nil {
		return nil, err
	}

	config.GetLogger().WithFields(logrus.Fields{
		"module":   "cierreCajaWorkflow",
		"fecha":    fecha,
		"ingresos": totalIngresos,
		"egresos":  totalEgresos,
		"pagos":    numPagos,
	}).Info("cierre de caja guardado")
	return cierre, nil
}

// DeleteCierre removes a close snapshot and best-effort removes its exported
// artifact; a missing artifact is logged and tolerated.
func DeleteCierre(ctx context.Context, fecha string) error {
	if _, err := models.DeleteCierreCaja(ctx, fecha); err != nil {
		return err
	}

	if err := utils.DeleteFromGCS(ctx, cierreObjectName(fecha)); err != nil {
		if utils.IsObjectNotFound(err) {
			config.GetLogger().WithFields(logrus.Fields{
				"module": "cierreCajaWorkflow",
				"fecha":  fecha,
			}).Info("artefacto de cierre no encontrado; se omite")
			return nil
		}
		return err
	}
	return nil
}

func cierreObjectName(fecha string) string {
	return fmt.Sprintf("cierres/cierre-%s.xlsx", fecha)
}

func buildCierreExport(fecha string, items []CierreItem, egresos []models.CierreCajaEgreso, totalIngresos, totalEgresos decimal.Decimal) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Cierre " + fecha
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Unidad", "Propietario", "Módulo", "Fecha deuda", "Monto", "Pago"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	row := 2
	for _, item := range items {
		values := []interface{}{
			item.Codigo, item.PropietarioNombre, item.Modulo, item.FechaDeuda,
			item.Monto.InexactFloat64(), item.MontoPago.InexactFloat64(),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		row++
	}

	row++
	summary := [][]interface{}{
		{"Total ingresos", totalIngresos.InexactFloat64()},
		{"Total egresos", totalEgresos.InexactFloat64()},
		{"Balance", totalIngresos.Sub(totalEgresos).InexactFloat64()},
	}
	for _, line := range summary {
		for i, v := range line {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
		row++
	}

	if len(egresos) > 0 {
		row++
		for _, e := range egresos {
			cellA, _ := excelize.CoordinatesToCellName(1, row)
			cellB, _ := excelize.CoordinatesToCellName(2, row)
			if err := f.SetCellValue(sheet, cellA, e.Descripcion); err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cellB, e.Monto.InexactFloat64()); err != nil {
				return nil, err
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
