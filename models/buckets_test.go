package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestBucketsAdd(t *testing.T) {
	a := Buckets{Administracion: dec(2), Multas: dec(5)}
	b := Buckets{Administracion: dec(1), MinutosBase: dec(3)}

	sum := a.Add(b)
	assert.True(t, sum.Administracion.Equal(dec(3)))
	assert.True(t, sum.MinutosBase.Equal(dec(3)))
	assert.True(t, sum.MinutosAtraso.IsZero())
	assert.True(t, sum.Multas.Equal(dec(5)))

	// Add does not mutate its receiver
	assert.True(t, a.Administracion.Equal(dec(2)))
}

func TestBucketsTotal(t *testing.T) {
	b := Buckets{Administracion: dec(2), MinutosBase: dec(1), MinutosAtraso: dec(4), Multas: dec(3)}
	assert.True(t, b.Total().Equal(dec(10)))
	assert.True(t, Buckets{}.Total().IsZero())
}

func TestBucketsHasNegative(t *testing.T) {
	assert.False(t, Buckets{}.HasNegative())
	assert.False(t, Buckets{Multas: dec(1)}.HasNegative())
	assert.True(t, Buckets{MinutosAtraso: dec(-1)}.HasNegative())
}

func TestBucketsExceeds(t *testing.T) {
	adeudo := Buckets{Administracion: dec(2), Multas: dec(5)}

	assert.Empty(t, Buckets{Administracion: dec(2)}.Exceeds(adeudo))

	over := Buckets{Administracion: dec(3), Multas: dec(6), MinutosBase: dec(1)}.Exceeds(adeudo)
	assert.ElementsMatch(t, []string{"administracion", "multas", "minutosBase"}, over)
}

func TestBucketsEquals(t *testing.T) {
	a := Buckets{Administracion: dec(2)}
	b := Buckets{Administracion: decimal.NewFromFloat(2.0)}
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(Buckets{Administracion: dec(2), Multas: dec(1)}))
}

func TestParseEmpresa(t *testing.T) {
	e, err := ParseEmpresa("Panorama")
	assert.NoError(t, err)
	assert.Equal(t, EmpresaPanorama, e)

	_, err = ParseEmpresa("panorama")
	assert.Error(t, err)
	_, err = ParseEmpresa("")
	assert.Error(t, err)
}

func TestPuedeRecaudar(t *testing.T) {
	assert.True(t, PuedeRecaudar("administrador"))
	assert.True(t, PuedeRecaudar("recaudador"))
	assert.False(t, PuedeRecaudar("consulta"))
	assert.False(t, PuedeRecaudar(""))
}

func TestLegacyPagoTotalBuckets(t *testing.T) {
	p := &LegacyPagoTotal{Administracion: dec(2), Multas: dec(5)}
	b := p.Buckets()
	assert.True(t, b.Administracion.Equal(dec(2)))
	assert.True(t, b.Multas.Equal(dec(5)))
	assert.True(t, b.MinutosBase.IsZero())
}
