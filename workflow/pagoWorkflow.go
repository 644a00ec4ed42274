package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/models"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AplicacionInput credits part of a payment to one day of one unit.
type AplicacionInput struct {
	Fecha  string         `json:"fecha" binding:"required"` // debt date, YYYY-MM-DD
	Montos models.Buckets `json:"montos"`
}

type NewPagoInput struct {
	Empresa      string            `json:"empresa" binding:"required" validate:"required"`
	Codigo       string            `json:"codigo" binding:"required" validate:"required"`
	Monto        decimal.Decimal   `json:"monto"`
	ReciboUrl    string            `json:"reciboUrl"`
	Aplicaciones []AplicacionInput `json:"aplicaciones" binding:"required" validate:"required,min=1"`

	// Migration replay path: deterministic id, historical timestamp, legacy
	// cross-reference, and no live paid-counter increment (the migration's
	// final recalc pass sets paid totals instead).
	PagoId           string    `json:"-"`
	FechaPago        time.Time `json:"-"`
	UsuarioLegacyId  string    `json:"-"`
	ReporteLegacyId  string    `json:"-"`
	OmitirIncremento bool      `json:"-"`
}

// ApplyPago applies one payment against one or more unit-day records and
// persists the immutable ledger entry plus its mirrored per-day copies.
//
// Paid-bucket counters are incremented additively. The ledger entry and the
// mirrors use merge upserts keyed by the payment id, so a replayed batch
// does not duplicate documents — but re-running the same logical payment
// DOES increment the counters again. Callers that need replay safety go
// through the migration recalc instead.
func ApplyPago(ctx context.Context, input *NewPagoInput) (*models.Pago, error) {
	pago, aplicaciones, mirrors, err := buildPago(ctx, input)
	if err != nil {
		return nil, err
	}

	warnOverpayment(ctx, pago.ID, input)

	bw := NewBatchWriter(config.GetDB())
	queuePagoWrites(bw, pago, aplicaciones, mirrors, !input.OmitirIncremento)
	if err := bw.Flush(); err != nil {
		return nil, err
	}

	fields := logrus.Fields{
		"module":  "pagoWorkflow",
		"pagoId":  pago.ID,
		"unidad":  pago.UnidadId,
		"monto":   pago.Monto,
		"destino": len(aplicaciones),
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlationId"] = cid
	}
	config.GetLogger().WithFields(fields).Info("pago aplicado")

	pago.Aplicaciones = aplicaciones
	return pago, nil
}

// buildPago validates the input and assembles the rows to persist.
func buildPago(ctx context.Context, input *NewPagoInput) (*models.Pago, []models.PagoAplicacion, []models.PagoAplicado, error) {
	if err := utils.Validate(input); err != nil {
		for field, reason := range utils.ProcessValidationErrors(err) {
			return nil, nil, nil, utils.NewValidationError(field, reason)
		}
		return nil, nil, nil, err
	}

	// Repeated dates in one request collapse into a single application so the
	// stored breakdown and the paid counters move by the same amounts.
	var desglose models.Buckets
	merged := mergeAplicaciones(input.Aplicaciones)
	for _, apl := range merged {
		if apl.Montos.HasNegative() {
			return nil, nil, nil, utils.NewValidationError("montos", "amounts must be non-negative")
		}
		if _, err := utils.ParseISODateNoon(apl.Fecha); err != nil {
			return nil, nil, nil, utils.NewValidationError("fecha", "expected YYYY-MM-DD")
		}
		desglose = desglose.Add(apl.Montos)
	}

	unidad, err := models.GetUnidadById(ctx, utils.UnidadKey(input.Empresa, input.Codigo))
	if err != nil {
		return nil, nil, nil, err
	}

	pagoId := input.PagoId
	if pagoId == "" {
		pagoId = uuid.NewString()
	}
	fechaPago := input.FechaPago
	if fechaPago.IsZero() {
		fechaPago = time.Now().In(utils.Location())
	}

	monto := input.Monto
	if monto.IsZero() {
		monto = desglose.Total()
	}

	registradoPor, ok := utils.GetUserNameFromContext(ctx)
	if !ok {
		registradoPor, _ = utils.GetUserIdFromContext(ctx)
	}

	pago := &models.Pago{
		ID:              pagoId,
		UnidadId:        unidad.ID,
		Empresa:         unidad.Empresa,
		Codigo:          unidad.Codigo,
		Monto:           monto,
		Desglose:        desglose,
		ReciboUrl:       input.ReciboUrl,
		RegistradoPor:   registradoPor,
		UsuarioLegacyId: input.UsuarioLegacyId,
		ReporteLegacyId: input.ReporteLegacyId,
		CreatedAt:       fechaPago,
	}

	var aplicaciones []models.PagoAplicacion
	var mirrors []models.PagoAplicado
	for _, apl := range merged {
		diaId := utils.DayKey(unidad.Empresa, apl.Fecha)
		aplicaciones = append(aplicaciones, models.PagoAplicacion{
			PagoId:      pagoId,
			DiaId:       diaId,
			UnidadDiaId: unidad.ID,
			Fecha:       apl.Fecha,
			Montos:      apl.Montos,
		})
		mirrors = append(mirrors, models.PagoAplicado{
			DiaId:       diaId,
			UnidadDiaId: unidad.ID,
			PagoId:      pagoId,
			Empresa:     unidad.Empresa,
			Codigo:      unidad.Codigo,
			Fecha:       apl.Fecha,
			MontoPago:   monto,
			Montos:      apl.Montos,
			FechaPago:   fechaPago,
		})
	}
	return pago, aplicaciones, mirrors, nil
}

// mergeAplicaciones sums applications that target the same date, keeping
// first-seen order. One (pago, dia, unidad) target maps to exactly one
// application row, so duplicates must combine before any row is built.
func mergeAplicaciones(aplicaciones []AplicacionInput) []AplicacionInput {
	merged := make([]AplicacionInput, 0, len(aplicaciones))
	index := make(map[string]int, len(aplicaciones))
	for _, apl := range aplicaciones {
		if i, ok := index[apl.Fecha]; ok {
			merged[i].Montos = merged[i].Montos.Add(apl.Montos)
			continue
		}
		index[apl.Fecha] = len(merged)
		merged = append(merged, apl)
	}
	return merged
}

// queuePagoWrites queues the full write set of one payment: the canonical
// ledger entry, its application rows, the per-day mirrors, and (on the live
// path) the additive paid-counter increments. The migration replays legacy
// payments through this same function.
func queuePagoWrites(bw *BatchWriter, pago *models.Pago, aplicaciones []models.PagoAplicacion, mirrors []models.PagoAplicado, incremento bool) {
	p := *pago
	bw.Queue(func(tx *gorm.DB) error {
		return tx.Omit("Aplicaciones").Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"monto",
				"desglose_administracion", "desglose_minutos_base", "desglose_minutos_atraso", "desglose_multas",
				"recibo_url",
			}),
		}).Create(&p).Error
	})

	for i := range aplicaciones {
		apl := aplicaciones[i]
		bw.Queue(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "pago_id"}, {Name: "dia_id"}, {Name: "unidad_dia_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"monto_administracion", "monto_minutos_base", "monto_minutos_atraso", "monto_multas",
				}),
			}).Create(&apl).Error
		})
	}

	for i := range mirrors {
		mirror := mirrors[i]
		bw.Queue(func(tx *gorm.DB) error {
			return tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "dia_id"}, {Name: "unidad_dia_id"}, {Name: "pago_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"monto_pago",
					"monto_administracion", "monto_minutos_base", "monto_minutos_atraso", "monto_multas",
					"fecha_pago",
				}),
			}).Create(&mirror).Error
		})

		if incremento {
			montos := mirror.Montos
			diaId, unidadDiaId := mirror.DiaId, mirror.UnidadDiaId
			bw.Queue(func(tx *gorm.DB) error {
				result := tx.Model(&models.UnidadDia{}).
					Where("dia_id = ? AND id = ?", diaId, unidadDiaId).
					Updates(map[string]interface{}{
						"pagado_administracion": gorm.Expr("pagado_administracion + ?", montos.Administracion),
						"pagado_minutos_base":   gorm.Expr("pagado_minutos_base + ?", montos.MinutosBase),
						"pagado_minutos_atraso": gorm.Expr("pagado_minutos_atraso + ?", montos.MinutosAtraso),
						"pagado_multas":         gorm.Expr("pagado_multas + ?", montos.Multas),
					})
				if result.Error != nil {
					return result.Error
				}
				if result.RowsAffected == 0 {
					return errUnidadDiaMissing(diaId, unidadDiaId)
				}
				return nil
			})
		}
	}
}

// errUnidadDiaMissing marks a payment applied against a day the unit has no
// record for. It wraps the not-found sentinel so the HTTP edge answers 404
// instead of a generic failure.
func errUnidadDiaMissing(diaId, unidadDiaId string) error {
	return fmt.Errorf("unidad-dia %s/%s for payment application: %w", diaId, unidadDiaId, utils.ErrorRecordNotFound)
}

// warnOverpayment logs when an application pushes a category's paid total
// past its owed amount. Overpayment is allowed (advance payments exist);
// it is logged so back office can audit mis-applied payments.
func warnOverpayment(ctx context.Context, pagoId string, input *NewPagoInput) {
	for _, apl := range input.Aplicaciones {
		diaId := utils.DayKey(input.Empresa, apl.Fecha)
		unidadDiaId := utils.UnidadKey(input.Empresa, input.Codigo)
		record, err := models.GetUnidadDia(ctx, diaId, unidadDiaId)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				config.LogError(config.GetLogger(), "pagoWorkflow", "warnOverpayment", diaId, nil, err)
			}
			continue
		}
		if over := record.Pagado.Add(apl.Montos).Exceeds(record.Adeudo); len(over) > 0 {
			config.GetLogger().WithFields(logrus.Fields{
				"module": "pagoWorkflow",
				"pagoId": pagoId,
				"diaId":  diaId,
				"unidad": unidadDiaId,
				"rubros": over,
			}).Warn("pago excede lo adeudado")
		}
	}
}
