package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/models"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MigracionOptions struct {
	Desde    string // YYYY-MM-DD, inclusive
	Hasta    string // YYYY-MM-DD, inclusive
	Dry      bool
	PageSize int
}

// MigracionResumen is the per-reason counter summary of one migration run.
// Per-record problems are counted and skipped, never fatal.
type MigracionResumen struct {
	UsuariosProcesados  int `json:"usuariosProcesados"`
	UsuariosSinEmpresa  int `json:"usuariosSinEmpresa"`
	ReportesProcesados  int `json:"reportesProcesados"`
	SinFecha            int `json:"sinFecha"`
	FueraDeRango        int `json:"fueraDeRango"`
	SinUnidad           int `json:"sinUnidad"`
	PagosReplicados     int `json:"pagosReplicados"`
	UnidadesDiaEscritas int `json:"unidadesDiaEscritas"`
	RecalcEscritos      int `json:"recalcEscritos"`
}

func (r *MigracionResumen) String() string {
	return fmt.Sprintf(
		"usuarios=%d sinEmpresa=%d reportes=%d sinFecha=%d fueraDeRango=%d sinUnidad=%d pagos=%d unidadesDia=%d recalc=%d",
		r.UsuariosProcesados, r.UsuariosSinEmpresa, r.ReportesProcesados, r.SinFecha,
		r.FueraDeRango, r.SinUnidad, r.PagosReplicados, r.UnidadesDiaEscritas, r.RecalcEscritos,
	)
}

// pagoAccumulator pre-sums replayed payment amounts per (day, unit) so the
// final pass can overwrite paid totals with one recomputed figure. The
// overwrite, not the per-payment increments, is what keeps re-runs of the
// same window from double-counting.
type pagoAccumulator map[string]models.Buckets

func accKey(diaId, unidadDiaId string) string { return diaId + "|" + unidadDiaId }

func (a pagoAccumulator) add(diaId, unidadDiaId string, b models.Buckets) {
	k := accKey(diaId, unidadDiaId)
	a[k] = a[k].Add(b)
}

// legacySource abstracts the legacy table pagers so the reconciler's
// classification and dry-run behavior can be exercised without a database.
type legacySource struct {
	usuariosPage func(ctx context.Context, cursor string, pageSize int) ([]*models.LegacyUsuario, error)
	reportesPage func(ctx context.Context, usuarioId, cursor string, pageSize int) ([]*models.LegacyReporteDiario, error)
	pagos        func(ctx context.Context, reporteId string) ([]*models.LegacyPagoTotal, error)
}

func dbLegacySource() legacySource {
	return legacySource{
		usuariosPage: models.GetLegacyUsuariosPage,
		reportesPage: models.GetLegacyReportesPage,
		pagos:        models.GetLegacyPagos,
	}
}

// inWindow reports whether an instant falls inside the inclusive
// [inicio, fin] window. fin is the last millisecond of the end date, so a
// report one millisecond later is out of range.
func inWindow(t, inicio, fin time.Time) bool {
	return !t.Before(inicio) && !t.After(fin)
}

// RunMigracionLegacy transforms the legacy owner -> daily report -> payment
// shape into day headers, unit-day records and payment ledger entries over
// the requested date window.
//
// Pass order:
//  1. catalog lookup by (empresa, codigo)
//  2. page owners by id; page each owner's reports by id
//  3. per report: normalize the polymorphic modification date, window-check,
//     resolve the unit, merge-upsert header + unit-day with owed amounts
//  4. replay each payment sub-entry through the live write path (minus the
//     paid-counter increment) while pre-summing per (day, unit)
//  5. final pass: overwrite each touched record's paid buckets with the
//     accumulated totals, marked migrated_recalc
//
// Dry mode reads and counts but issues no writes.
func RunMigracionLegacy(ctx context.Context, opts MigracionOptions) (*MigracionResumen, error) {
	lookup, err := models.BuildUnidadLookup(ctx)
	if err != nil {
		return nil, err
	}
	return runMigracionLegacy(ctx, opts, dbLegacySource(), lookup, NewBatchWriter(config.GetDB()))
}

func runMigracionLegacy(
	ctx context.Context,
	opts MigracionOptions,
	src legacySource,
	lookup map[string]*models.Unidad,
	bw *BatchWriter,
) (*MigracionResumen, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = config.PageSize
	}

	inicio, _, err := utils.DayBounds(opts.Desde)
	if err != nil {
		return nil, utils.NewValidationError("desde", "expected YYYY-MM-DD")
	}
	_, fin, err := utils.DayBounds(opts.Hasta)
	if err != nil {
		return nil, utils.NewValidationError("hasta", "expected YYYY-MM-DD")
	}

	logg := config.GetLogger()
	resumen := &MigracionResumen{}
	acc := pagoAccumulator{}

	cursor := ""
	for {
		usuarios, err := src.usuariosPage(ctx, cursor, opts.PageSize)
		if err != nil {
			return nil, err
		}
		if len(usuarios) == 0 {
			break
		}
		cursor = usuarios[len(usuarios)-1].ID

		for _, usuario := range usuarios {
			resumen.UsuariosProcesados++
			if _, err := models.ParseEmpresa(usuario.Empresa); err != nil {
				resumen.UsuariosSinEmpresa++
				continue
			}
			if err := migrateUsuario(ctx, usuario, inicio, fin, opts, src, lookup, acc, bw, resumen); err != nil {
				return nil, err
			}
		}

		// commit between owner pages so a crash loses at most one page
		if !opts.Dry {
			if err := bw.Flush(); err != nil {
				return nil, err
			}
		}
	}

	// Final reconciling pass: set (not increment) the paid buckets from the
	// accumulated replay totals.
	for key, totales := range acc {
		diaId, unidadDiaId := splitAccKey(key)
		if diaId == "" {
			continue
		}
		resumen.RecalcEscritos++
		if opts.Dry {
			continue
		}
		t := totales
		bw.Queue(func(tx *gorm.DB) error {
			return tx.Model(&models.UnidadDia{}).
				Where("dia_id = ? AND id = ?", diaId, unidadDiaId).
				Updates(map[string]interface{}{
					"pagado_administracion": t.Administracion,
					"pagado_minutos_base":   t.MinutosBase,
					"pagado_minutos_atraso": t.MinutosAtraso,
					"pagado_multas":         t.Multas,
					"migrated_recalc":       true,
				}).Error
		})
	}
	if !opts.Dry {
		if err := bw.Flush(); err != nil {
			return nil, err
		}
	}

	logg.WithFields(logrus.Fields{
		"module": "migracionWorkflow",
		"desde":  opts.Desde,
		"hasta":  opts.Hasta,
		"dry":    opts.Dry,
	}).Info(resumen.String())
	return resumen, nil
}

func migrateUsuario(
	ctx context.Context,
	usuario *models.LegacyUsuario,
	inicio, fin time.Time,
	opts MigracionOptions,
	src legacySource,
	lookup map[string]*models.Unidad,
	acc pagoAccumulator,
	bw *BatchWriter,
	resumen *MigracionResumen,
) error {
	cursor := ""
	for {
		reportes, err := src.reportesPage(ctx, usuario.ID, cursor, opts.PageSize)
		if err != nil {
			return err
		}
		if len(reportes) == 0 {
			return nil
		}
		cursor = reportes[len(reportes)-1].ID

		for _, reporte := range reportes {
			fecha, ok := utils.ParseFlexibleTime(reporte.FechaModificacion)
			if !ok {
				resumen.SinFecha++
				continue
			}
			if !inWindow(fecha, inicio, fin) {
				resumen.FueraDeRango++
				continue
			}

			unidad, ok := lookup[utils.UnidadKey(usuario.Empresa, reporte.Codigo)]
			if !ok {
				resumen.SinUnidad++
				continue
			}

			if err := migrateReporte(ctx, usuario, reporte, unidad, fecha, opts, src, acc, bw, resumen); err != nil {
				return err
			}
			resumen.ReportesProcesados++
		}
	}
}

func migrateReporte(
	ctx context.Context,
	usuario *models.LegacyUsuario,
	reporte *models.LegacyReporteDiario,
	unidad *models.Unidad,
	fecha time.Time,
	opts MigracionOptions,
	src legacySource,
	acc pagoAccumulator,
	bw *BatchWriter,
	resumen *MigracionResumen,
) error {
	fechaISO := utils.ISODate(fecha)
	diaId := utils.DayKey(unidad.Empresa, fechaISO)

	adeudo := legacyAdeudo(reporte)
	resumen.UnidadesDiaEscritas++

	if !opts.Dry {
		header := models.ReporteDia{
			ID:      diaId,
			Empresa: unidad.Empresa,
			Fecha:   fechaISO,
		}
		bw.Queue(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"updated_at": time.Now()}),
			}).Create(&header).Error
		})

		// Merge upsert, not duplicate-guarded: re-running the window must be
		// able to rewrite the same record.
		record := models.UnidadDia{
			DiaId:             diaId,
			ID:                unidad.ID,
			Codigo:            unidad.Codigo,
			Empresa:           unidad.Empresa,
			Fecha:             fechaISO,
			PropietarioId:     unidad.PropietarioId,
			PropietarioNombre: unidad.PropietarioNombre,
			Orden:             unidad.Orden,
			Adeudo:            adeudo,
			UsuarioLegacyId:   usuario.ID,
			ReporteLegacyId:   reporte.ID,
		}
		bw.Queue(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "dia_id"}, {Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"adeudo_administracion", "adeudo_minutos_base", "adeudo_minutos_atraso", "adeudo_multas",
					"usuario_legacy_id", "reporte_legacy_id",
				}),
			}).Create(&record).Error
		})
	}

	pagos, err := src.pagos(ctx, reporte.ID)
	if err != nil {
		return err
	}
	for _, legacyPago := range pagos {
		montos := legacyPago.Buckets()
		acc.add(diaId, unidad.ID, montos)
		resumen.PagosReplicados++
		if opts.Dry {
			continue
		}

		// Deterministic id derived from the legacy source keeps the replay
		// at-most-once at the document level.
		pagoId := fmt.Sprintf("%s_%s_%s", usuario.ID, reporte.ID, legacyPago.ID)
		registradoPor, _ := utils.GetUserNameFromContext(ctx)
		pago := &models.Pago{
			ID:              pagoId,
			UnidadId:        unidad.ID,
			Empresa:         unidad.Empresa,
			Codigo:          unidad.Codigo,
			Monto:           montos.Total(),
			Desglose:        montos,
			RegistradoPor:   registradoPor,
			UsuarioLegacyId: usuario.ID,
			ReporteLegacyId: reporte.ID,
			CreatedAt:       fecha,
		}
		aplicaciones := []models.PagoAplicacion{{
			PagoId:      pagoId,
			DiaId:       diaId,
			UnidadDiaId: unidad.ID,
			Fecha:       fechaISO,
			Montos:      montos,
		}}
		mirrors := []models.PagoAplicado{{
			DiaId:       diaId,
			UnidadDiaId: unidad.ID,
			PagoId:      pagoId,
			Empresa:     unidad.Empresa,
			Codigo:      unidad.Codigo,
			Fecha:       fechaISO,
			MontoPago:   montos.Total(),
			Montos:      montos,
			FechaPago:   fecha,
		}}
		// Same aggregation rule as the live path, minus the counter
		// increment; paid totals come from the final recalc pass.
		queuePagoWrites(bw, pago, aplicaciones, mirrors, false)
	}
	return nil
}

// legacyAdeudo derives owed amounts from a legacy report. Administration
// defaults to the daily fee when absent; the rest default to zero.
func legacyAdeudo(reporte *models.LegacyReporteDiario) models.Buckets {
	adeudo := models.Buckets{}
	if reporte.CobroAdministracion != nil {
		adeudo.Administracion = *reporte.CobroAdministracion
	} else {
		adeudo.Administracion = models.TarifaAdministracionDiaria
	}
	if reporte.CobroMinutosBase != nil {
		adeudo.MinutosBase = *reporte.CobroMinutosBase
	}
	if reporte.CobroMinutosAtraso != nil {
		adeudo.MinutosAtraso = *reporte.CobroMinutosAtraso
	}
	if reporte.CobroMultas != nil {
		adeudo.Multas = *reporte.CobroMultas
	}
	return adeudo
}

func splitAccKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[:i], key[i+1:]
		}
	}
	return "", ""
}
