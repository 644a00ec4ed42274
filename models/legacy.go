package models

import (
	"context"
	"time"

	"bitbucket.org/rutacoop/flota_backend/config"
	"github.com/shopspring/decimal"
)

// Legacy shape: owner -> daily report -> payment sub-entries. Read-only to
// this service; only the migration is allowed to touch these tables.

type LegacyUsuario struct {
	ID      string `gorm:"primaryKey;size:128" json:"id"`
	Nombre  string `gorm:"size:255" json:"nombre"`
	Empresa string `gorm:"size:64" json:"empresa"`
}

func (LegacyUsuario) TableName() string { return "usuarios" }

// LegacyReporteDiario is one owner's daily report. FechaModificacion is
// stored raw: depending on the writing client's era it can be an epoch (in
// seconds or milliseconds), a formatted datetime, or a bare date.
type LegacyReporteDiario struct {
	ID                string `gorm:"primaryKey;size:128" json:"id"`
	UsuarioId         string `gorm:"size:128;index;not null" json:"usuarioId"`
	Codigo            string `gorm:"size:16" json:"codigo"`
	FechaModificacion string `gorm:"size:64;default:null" json:"fechaModificacion"`

	// owed amounts; nil means the field was absent on the legacy document
	CobroAdministracion *decimal.Decimal `gorm:"type:decimal(12,2);default:null" json:"cobroAdministracion"`
	CobroMinutosBase    *decimal.Decimal `gorm:"type:decimal(12,2);default:null" json:"cobroMinutosBase"`
	CobroMinutosAtraso  *decimal.Decimal `gorm:"type:decimal(12,2);default:null" json:"cobroMinutosAtraso"`
	CobroMultas         *decimal.Decimal `gorm:"type:decimal(12,2);default:null" json:"cobroMultas"`

	CreatedAt time.Time `json:"created_at"`
}

func (LegacyReporteDiario) TableName() string { return "reportes_diarios" }

type LegacyPagoTotal struct {
	ID        string `gorm:"primaryKey;size:128" json:"id"`
	ReporteId string `gorm:"size:128;index;not null" json:"reporteId"`

	Administracion decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"administracion"`
	MinutosBase    decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"minutosBase"`
	MinutosAtraso  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"minutosAtraso"`
	Multas         decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"multas"`

	CreatedAt time.Time `json:"created_at"`
}

func (LegacyPagoTotal) TableName() string { return "pagos_totales" }

func (p *LegacyPagoTotal) Buckets() Buckets {
	return Buckets{
		Administracion: p.Administracion,
		MinutosBase:    p.MinutosBase,
		MinutosAtraso:  p.MinutosAtraso,
		Multas:         p.Multas,
	}
}

// GetLegacyUsuario fetches one legacy owner. (may return RecordNotFound error)
func GetLegacyUsuario(ctx context.Context, id string) (*LegacyUsuario, error) {
	db := config.GetDB()
	var usuario LegacyUsuario
	if err := db.WithContext(ctx).Where("id = ?", id).First(&usuario).Error; err != nil {
		return nil, err
	}
	return &usuario, nil
}

// GetLegacyUsuariosPage pages through owners ordered by document id, keyset
// style: pass the last id of the previous page as cursor (empty to start).
func GetLegacyUsuariosPage(ctx context.Context, cursor string, pageSize int) ([]*LegacyUsuario, error) {
	db := config.GetDB()
	var usuarios []*LegacyUsuario
	query := db.WithContext(ctx).Order("id asc").Limit(pageSize)
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}
	if err := query.Find(&usuarios).Error; err != nil {
		return nil, err
	}
	return usuarios, nil
}

// GetLegacyReportesPage pages one owner's daily reports ordered by id.
func GetLegacyReportesPage(ctx context.Context, usuarioId, cursor string, pageSize int) ([]*LegacyReporteDiario, error) {
	db := config.GetDB()
	var reportes []*LegacyReporteDiario
	query := db.WithContext(ctx).
		Where("usuario_id = ?", usuarioId).
		Order("id asc").
		Limit(pageSize)
	if cursor != "" {
		query = query.Where("id > ?", cursor)
	}
	if err := query.Find(&reportes).Error; err != nil {
		return nil, err
	}
	return reportes, nil
}

// GetLegacyPagos lists the payment sub-entries of one legacy report.
func GetLegacyPagos(ctx context.Context, reporteId string) ([]*LegacyPagoTotal, error) {
	db := config.GetDB()
	var pagos []*LegacyPagoTotal
	if err := db.WithContext(ctx).
		Where("reporte_id = ?", reporteId).
		Order("id asc").
		Find(&pagos).Error; err != nil {
		return nil, err
	}
	return pagos, nil
}
