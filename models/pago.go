package models

import (
	"context"
	"time"

	"bitbucket.org/rutacoop/flota_backend/config"
	"github.com/shopspring/decimal"
)

// Pago is the canonical, append-only payment ledger entry, stored under the
// owning unit independent of the day hierarchy. Never mutated after
// creation; deletion only through explicit administrative cleanup.
type Pago struct {
	ID       string          `gorm:"primaryKey;size:191" json:"id"`
	UnidadId string          `gorm:"size:128;index;not null" json:"unidadId"`
	Empresa  string          `gorm:"size:64;not null" json:"empresa"`
	Codigo   string          `gorm:"size:16;index" json:"codigo"`
	Monto    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"monto"`

	// per-category breakdown of the whole payment
	Desglose Buckets `gorm:"embedded;embeddedPrefix:desglose_" json:"desglose"`

	ReciboUrl string `gorm:"size:512;default:null" json:"reciboUrl,omitempty"`

	// who registered the payment (collector name, or the CLI actor on replays)
	RegistradoPor string `gorm:"size:128;default:null" json:"registradoPor,omitempty"`

	// set when replayed from the legacy shape
	UsuarioLegacyId string `gorm:"size:128;default:null" json:"usuarioLegacyId,omitempty"`
	ReporteLegacyId string `gorm:"size:128;default:null" json:"reporteLegacyId,omitempty"`

	Aplicaciones []PagoAplicacion `gorm:"foreignKey:PagoId" json:"aplicaciones"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Pago) TableName() string { return "pagos" }

// PagoAplicacion records which day/unit a payment contributed to and how
// much per category. A single payment can fan out across several days.
type PagoAplicacion struct {
	ID          int    `gorm:"primary_key" json:"id"`
	PagoId      string `gorm:"size:191;uniqueIndex:idx_pago_aplicacion,priority:1;not null" json:"pagoId"`
	DiaId       string `gorm:"size:128;uniqueIndex:idx_pago_aplicacion,priority:2;index;not null" json:"diaId"`
	UnidadDiaId string `gorm:"size:128;uniqueIndex:idx_pago_aplicacion,priority:3;not null" json:"unidadDiaId"`
	Fecha       string `gorm:"size:10;not null" json:"fecha"`

	Montos Buckets `gorm:"embedded;embeddedPrefix:monto_" json:"montos"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PagoAplicacion) TableName() string { return "pagos_aplicaciones" }

// PagoAplicado is the mirrored per-day summary copy of an application,
// nested under the day/unit path for fast per-day lookup. MontoPago carries
// the payment's total (not this application's share) so close reporting can
// dedupe by payment identity.
type PagoAplicado struct {
	DiaId       string `gorm:"primaryKey;size:128" json:"diaId"`
	UnidadDiaId string `gorm:"primaryKey;size:128" json:"unidadDiaId"`
	PagoId      string `gorm:"primaryKey;size:191" json:"pagoId"`

	Empresa   string          `gorm:"size:64;not null" json:"empresa"`
	Codigo    string          `gorm:"size:16;not null" json:"codigo"`
	Fecha     string          `gorm:"size:10;index;not null" json:"fecha"`
	MontoPago decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"montoPago"`

	Montos Buckets `gorm:"embedded;embeddedPrefix:monto_" json:"montos"`

	FechaPago time.Time `gorm:"index;not null" json:"fechaPago"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PagoAplicado) TableName() string { return "pagos_aplicados" }

// GetPago fetches one canonical ledger entry. (may return RecordNotFound error)
func GetPago(ctx context.Context, id string) (*Pago, error) {
	db := config.GetDB()
	var pago Pago
	err := db.WithContext(ctx).Preload("Aplicaciones").Where("id = ?", id).First(&pago).Error
	if err != nil {
		return nil, err
	}
	return &pago, nil
}

// GetPagosByUnidad lists the canonical ledger entries of one unit, newest
// first, with their applications.
func GetPagosByUnidad(ctx context.Context, unidadId string) ([]*Pago, error) {
	db := config.GetDB()
	var pagos []*Pago
	err := db.WithContext(ctx).
		Preload("Aplicaciones").
		Where("unidad_id = ?", unidadId).
		Order("created_at desc").
		Find(&pagos).Error
	if err != nil {
		return nil, err
	}
	return pagos, nil
}

// GetPagosAplicadosDia lists the mirrored applications under one day/unit.
func GetPagosAplicadosDia(ctx context.Context, diaId, unidadDiaId string) ([]*PagoAplicado, error) {
	db := config.GetDB()
	var aplicados []*PagoAplicado
	err := db.WithContext(ctx).
		Where("dia_id = ? AND unidad_dia_id = ?", diaId, unidadDiaId).
		Find(&aplicados).Error
	if err != nil {
		return nil, err
	}
	return aplicados, nil
}

// GetPagosAplicadosEnRango lists every mirrored application whose payment
// timestamp falls inside [desde, hasta], system-wide. The cash close reads
// the day through this.
func GetPagosAplicadosEnRango(ctx context.Context, desde, hasta time.Time) ([]*PagoAplicado, error) {
	db := config.GetDB()
	var aplicados []*PagoAplicado
	err := db.WithContext(ctx).
		Where("fecha_pago >= ? AND fecha_pago <= ?", desde, hasta).
		Find(&aplicados).Error
	if err != nil {
		return nil, err
	}
	return aplicados, nil
}
