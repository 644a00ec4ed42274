package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotalDedupesByPagoKey(t *testing.T) {
	// P1 (total 50) is split across two categories and therefore shows up as
	// two line items; it must be counted once. P2 (total 75) is single-item.
	items := []CierreItem{
		{PagoKey: "p1", Modulo: "administracion", Monto: decimal.NewFromInt(20), MontoPago: decimal.NewFromInt(50)},
		{PagoKey: "p1", Modulo: "multas", Monto: decimal.NewFromInt(30), MontoPago: decimal.NewFromInt(50)},
		{PagoKey: "p2", Modulo: "minutosBase", Monto: decimal.NewFromInt(75), MontoPago: decimal.NewFromInt(75)},
	}

	total := ComputeTotal(items)

	// 50 + 75, not 50+50+75
	assert.True(t, total.Equal(decimal.NewFromInt(125)), "got %s", total)
}

func TestComputeTotalFirstOccurrenceWins(t *testing.T) {
	// Inconsistent MontoPago across items sharing a key should not happen,
	// but if it does, the first item seen decides.
	items := []CierreItem{
		{PagoKey: "p1", Modulo: "administracion", MontoPago: decimal.NewFromInt(50)},
		{PagoKey: "p1", Modulo: "multas", MontoPago: decimal.NewFromInt(99)},
	}
	assert.True(t, ComputeTotal(items).Equal(decimal.NewFromInt(50)))
}

func TestComputeTotalEmpty(t *testing.T) {
	assert.True(t, ComputeTotal(nil).IsZero())
}

func TestCierreObjectNameIsDeterministic(t *testing.T) {
	assert.Equal(t, "cierres/cierre-2024-03-15.xlsx", cierreObjectName("2024-03-15"))
}
