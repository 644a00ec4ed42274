package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/models"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RecalcOptions struct {
	Desde string // YYYY-MM-DD, inclusive
	Hasta string // YYYY-MM-DD, inclusive
	Dry   bool
}

type RecalcResumen struct {
	Revisados  int `json:"revisados"`
	ConDrift   int `json:"conDrift"`
	Corregidos int `json:"corregidos"`
}

func (r *RecalcResumen) String() string {
	return fmt.Sprintf("revisados=%d conDrift=%d corregidos=%d", r.Revisados, r.ConDrift, r.Corregidos)
}

// RunRecalcPagado recomputes every unit-day record's paid buckets in a date
// window from the immutable applied-payment mirrors and corrects any drift.
// Because the mirrors are keyed by payment id, the recomputed figure counts
// each payment once no matter how often it was replayed; this is the
// operational remedy when the live additive counters have been re-applied.
func RunRecalcPagado(ctx context.Context, opts RecalcOptions) (*RecalcResumen, error) {
	if _, _, err := utils.DayBounds(opts.Desde); err != nil {
		return nil, utils.NewValidationError("desde", "expected YYYY-MM-DD")
	}
	if _, _, err := utils.DayBounds(opts.Hasta); err != nil {
		return nil, utils.NewValidationError("hasta", "expected YYYY-MM-DD")
	}

	db := config.GetDB()
	var records []*models.UnidadDia
	err := db.WithContext(ctx).
		Where("fecha >= ? AND fecha <= ?", opts.Desde, opts.Hasta).
		Order("fecha asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	logg := config.GetLogger()
	resumen := &RecalcResumen{}
	bw := NewBatchWriter(db)

	for _, record := range records {
		resumen.Revisados++

		aplicados, err := models.GetPagosAplicadosDia(ctx, record.DiaId, record.ID)
		if err != nil {
			return nil, err
		}
		recomputed := models.Buckets{}
		for _, apl := range aplicados {
			recomputed = recomputed.Add(apl.Montos)
		}

		if recomputed.Equals(record.Pagado) {
			continue
		}
		resumen.ConDrift++
		logg.WithFields(logrus.Fields{
			"module":     "recalcWorkflow",
			"diaId":      record.DiaId,
			"unidad":     record.ID,
			"almacenado": record.Pagado,
			"recalculo":  recomputed,
		}).Warn("pagado con drift")

		if opts.Dry {
			continue
		}
		resumen.Corregidos++
		diaId, unidadDiaId, t := record.DiaId, record.ID, recomputed
		bw.Queue(func(tx *gorm.DB) error {
			return tx.Model(&models.UnidadDia{}).
				Where("dia_id = ? AND id = ?", diaId, unidadDiaId).
				Updates(map[string]interface{}{
					"pagado_administracion": t.Administracion,
					"pagado_minutos_base":   t.MinutosBase,
					"pagado_minutos_atraso": t.MinutosAtraso,
					"pagado_multas":         t.Multas,
				}).Error
		})
	}

	if !opts.Dry {
		if err := bw.Flush(); err != nil {
			return nil, err
		}
	}

	logg.WithFields(logrus.Fields{
		"module": "recalcWorkflow",
		"desde":  opts.Desde,
		"hasta":  opts.Hasta,
		"dry":    opts.Dry,
	}).Info(resumen.String())
	return resumen, nil
}
