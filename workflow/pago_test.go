package workflow

import (
	"context"
	"testing"

	"bitbucket.org/rutacoop/flota_backend/models"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NOTE: These tests are intentionally DB-free. They validate the aggregation
// rule the payment path applies to a unit-day record: paid buckets are
// additive running sums, and distinct payments accumulate.
// Full DB integration tests belong in an environment that can run MySQL.

type fakeUnidadDia struct {
	pagado models.Buckets
}

func (f *fakeUnidadDia) applyIncrement(montos models.Buckets) {
	// mirrors the additive pagado_* update issued by queuePagoWrites
	f.pagado = f.pagado.Add(montos)
}

func TestPagoIncrementAggregation(t *testing.T) {
	record := &fakeUnidadDia{}

	record.applyIncrement(models.Buckets{
		Administracion: decimal.NewFromInt(10),
		Multas:         decimal.NewFromInt(5),
	})

	assert.True(t, record.pagado.Administracion.Equal(decimal.NewFromInt(10)))
	assert.True(t, record.pagado.Multas.Equal(decimal.NewFromInt(5)))
	assert.True(t, record.pagado.MinutosBase.IsZero())
	assert.True(t, record.pagado.MinutosAtraso.IsZero())

	// a second, distinct payment accumulates
	record.applyIncrement(models.Buckets{Administracion: decimal.NewFromInt(3)})
	assert.True(t, record.pagado.Administracion.Equal(decimal.NewFromInt(13)))
	assert.True(t, record.pagado.Multas.Equal(decimal.NewFromInt(5)))
}

// Replaying the same logical payment through the live increment path
// double-counts: the ledger document is deduplicated by id but the running
// sum is not. The migration recalc exists precisely because of this.
func TestPagoIncrementIsNotReplaySafe(t *testing.T) {
	record := &fakeUnidadDia{}
	montos := models.Buckets{Administracion: decimal.NewFromInt(10)}

	record.applyIncrement(montos)
	record.applyIncrement(montos) // same payment replayed

	assert.True(t, record.pagado.Administracion.Equal(decimal.NewFromInt(20)))
}

// Two applications against the same date must collapse into one row so the
// stored breakdown and the paid counters move by the same amounts.
func TestMergeAplicacionesCombinesSameDate(t *testing.T) {
	merged := mergeAplicaciones([]AplicacionInput{
		{Fecha: "2024-03-15", Montos: models.Buckets{Administracion: decimal.NewFromInt(2)}},
		{Fecha: "2024-03-16", Montos: models.Buckets{Multas: decimal.NewFromInt(5)}},
		{Fecha: "2024-03-15", Montos: models.Buckets{Administracion: decimal.NewFromInt(1), MinutosBase: decimal.NewFromInt(3)}},
	})

	require.Len(t, merged, 2)
	assert.Equal(t, "2024-03-15", merged[0].Fecha)
	assert.True(t, merged[0].Montos.Administracion.Equal(decimal.NewFromInt(3)))
	assert.True(t, merged[0].Montos.MinutosBase.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "2024-03-16", merged[1].Fecha)
	assert.True(t, merged[1].Montos.Multas.Equal(decimal.NewFromInt(5)))
}

func TestMergeAplicacionesKeepsDistinctDates(t *testing.T) {
	input := []AplicacionInput{
		{Fecha: "2024-03-15", Montos: models.Buckets{Administracion: decimal.NewFromInt(2)}},
		{Fecha: "2024-03-16", Montos: models.Buckets{Administracion: decimal.NewFromInt(2)}},
	}
	assert.Equal(t, input, mergeAplicaciones(input))
}

// A payment against a day the unit has no record for must surface as
// not-found so the HTTP edge answers 404, not 500.
func TestMissingUnidadDiaIsNotFound(t *testing.T) {
	err := errUnidadDiaMissing("panorama_2024-03-15", "panorama_E01")
	assert.ErrorIs(t, err, utils.ErrorRecordNotFound)
	assert.Contains(t, err.Error(), "panorama_E01")
}

func TestBuildPagoRejectsEmptyApplications(t *testing.T) {
	_, _, _, err := buildPago(context.Background(), &NewPagoInput{
		Empresa: "Panorama",
		Codigo:  "E01",
	})
	require.Error(t, err)
	var validationErr *utils.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestBuildPagoRejectsNegativeAmounts(t *testing.T) {
	_, _, _, err := buildPago(context.Background(), &NewPagoInput{
		Empresa: "Panorama",
		Codigo:  "E01",
		Aplicaciones: []AplicacionInput{{
			Fecha:  "2024-03-15",
			Montos: models.Buckets{Multas: decimal.NewFromInt(-1)},
		}},
	})
	require.Error(t, err)
	var validationErr *utils.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestBuildPagoRejectsBadDate(t *testing.T) {
	_, _, _, err := buildPago(context.Background(), &NewPagoInput{
		Empresa: "Panorama",
		Codigo:  "E01",
		Aplicaciones: []AplicacionInput{{
			Fecha:  "15/03/2024",
			Montos: models.Buckets{Multas: decimal.NewFromInt(1)},
		}},
	})
	require.Error(t, err)
	var validationErr *utils.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
