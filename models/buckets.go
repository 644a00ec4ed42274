package models

import (
	"github.com/shopspring/decimal"
)

// Buckets holds one amount per payable category. The same shape is used for
// owed totals, paid totals and per-application breakdowns.
type Buckets struct {
	Administracion decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"administracion"`
	MinutosBase    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"minutosBase"`
	MinutosAtraso  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"minutosAtraso"`
	Multas         decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"multas"`
}

func (b Buckets) Add(other Buckets) Buckets {
	return Buckets{
		Administracion: b.Administracion.Add(other.Administracion),
		MinutosBase:    b.MinutosBase.Add(other.MinutosBase),
		MinutosAtraso:  b.MinutosAtraso.Add(other.MinutosAtraso),
		Multas:         b.Multas.Add(other.Multas),
	}
}

func (b Buckets) Total() decimal.Decimal {
	return b.Administracion.Add(b.MinutosBase).Add(b.MinutosAtraso).Add(b.Multas)
}

func (b Buckets) Equals(other Buckets) bool {
	return b.Administracion.Equal(other.Administracion) &&
		b.MinutosBase.Equal(other.MinutosBase) &&
		b.MinutosAtraso.Equal(other.MinutosAtraso) &&
		b.Multas.Equal(other.Multas)
}

func (b Buckets) IsZero() bool {
	return b.Administracion.IsZero() && b.MinutosBase.IsZero() &&
		b.MinutosAtraso.IsZero() && b.Multas.IsZero()
}

// HasNegative reports whether any category is below zero. Payment inputs
// must be non-negative; owed inputs too.
func (b Buckets) HasNegative() bool {
	return b.Administracion.IsNegative() || b.MinutosBase.IsNegative() ||
		b.MinutosAtraso.IsNegative() || b.Multas.IsNegative()
}

// Exceeds reports the categories where b is strictly greater than limit.
// Used to warn when paid runs past owed; overpayment is allowed by policy.
func (b Buckets) Exceeds(limit Buckets) []string {
	var over []string
	if b.Administracion.GreaterThan(limit.Administracion) {
		over = append(over, "administracion")
	}
	if b.MinutosBase.GreaterThan(limit.MinutosBase) {
		over = append(over, "minutosBase")
	}
	if b.MinutosAtraso.GreaterThan(limit.MinutosAtraso) {
		over = append(over, "minutosAtraso")
	}
	if b.Multas.GreaterThan(limit.Multas) {
		over = append(over, "multas")
	}
	return over
}
