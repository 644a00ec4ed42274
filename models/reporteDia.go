package models

import (
	"context"
	"time"

	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"gorm.io/gorm/clause"
)

// ReporteDia is the per-company day header. One exists per (empresa, fecha);
// it is created on first access and never deleted in normal operation.
type ReporteDia struct {
	ID        string    `gorm:"primaryKey;size:128" json:"id"` // slug(empresa)_fecha
	Empresa   string    `gorm:"size:64;index;not null" json:"empresa"`
	Fecha     string    `gorm:"size:10;index;not null" json:"fecha"` // YYYY-MM-DD
	Cerrado   bool      `gorm:"default:false" json:"cerrado"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ReporteDia) TableName() string { return "reportes_dia" }

// UnidadDia is the per-unit ledger line under a day header: what the unit
// owes for the day and what has been collected so far, per category.
// Owed amounts are written once at creation; paid amounts are mutated only
// by the payment workflow (and by the migration's final recalc pass).
type UnidadDia struct {
	DiaId             string `gorm:"primaryKey;size:128" json:"diaId"`
	ID                string `gorm:"primaryKey;size:128" json:"id"` // slug(empresa)_codigo
	Codigo            string `gorm:"size:16;index;not null" json:"codigo"`
	Empresa           string `gorm:"size:64;not null" json:"empresa"`
	Fecha             string `gorm:"size:10;index;not null" json:"fecha"`
	PropietarioId     string `gorm:"size:128" json:"propietarioId"`
	PropietarioNombre string `gorm:"size:255" json:"propietarioNombre"`
	Orden             int    `gorm:"default:0" json:"orden"`

	Adeudo Buckets `gorm:"embedded;embeddedPrefix:adeudo_" json:"adeudo"`
	Pagado Buckets `gorm:"embedded;embeddedPrefix:pagado_" json:"pagado"`

	// set when the record was produced by the legacy migration
	UsuarioLegacyId string `gorm:"size:128;default:null" json:"usuarioLegacyId,omitempty"`
	ReporteLegacyId string `gorm:"size:128;default:null" json:"reporteLegacyId,omitempty"`
	MigratedRecalc  bool   `gorm:"default:false" json:"migratedRecalc"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UnidadDia) TableName() string { return "reportes_dia_unidades" }

// EnsureReporteDia upserts the day header for (empresa, fecha). Existing
// headers keep their cerrado flag; only updated_at is refreshed.
func EnsureReporteDia(ctx context.Context, empresa, fecha string) (*ReporteDia, error) {
	db := config.GetDB()

	header := ReporteDia{
		ID:      utils.DayKey(empresa, fecha),
		Empresa: empresa,
		Fecha:   fecha,
		Cerrado: false,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"updated_at": time.Now()}),
	}).Create(&header).Error
	if err != nil {
		return nil, err
	}

	// read back so callers see the stored cerrado flag
	var stored ReporteDia
	if err := db.WithContext(ctx).Where("id = ?", header.ID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

type NewUnidadDia struct {
	Empresa string  `json:"empresa" binding:"required"`
	Fecha   string  `json:"fecha" binding:"required"`
	Codigo  string  `json:"codigo" binding:"required"`
	Adeudo  Buckets `json:"adeudo"`
}

// CreateUnidadDia writes the owed-amount record for one unit on one day.
// At most one record may exist per (day, unit): the insert rides on the
// composite primary key, and a duplicate is surfaced as ErrUnidadDiaExists
// so the first call's owed amounts always win. Owner attribution comes from
// the catalog.
func CreateUnidadDia(ctx context.Context, input *NewUnidadDia) (*UnidadDia, error) {
	if input.Adeudo.HasNegative() {
		return nil, utils.NewValidationError("adeudo", "amounts must be non-negative")
	}
	if _, err := utils.ParseISODateNoon(input.Fecha); err != nil {
		return nil, utils.NewValidationError("fecha", "expected YYYY-MM-DD")
	}

	unidad, err := GetUnidadById(ctx, utils.UnidadKey(input.Empresa, input.Codigo))
	if err != nil {
		return nil, err
	}

	if _, err := EnsureReporteDia(ctx, input.Empresa, input.Fecha); err != nil {
		return nil, err
	}

	record := UnidadDia{
		DiaId:             utils.DayKey(input.Empresa, input.Fecha),
		ID:                unidad.ID,
		Codigo:            unidad.Codigo,
		Empresa:           unidad.Empresa,
		Fecha:             input.Fecha,
		PropietarioId:     unidad.PropietarioId,
		PropietarioNombre: unidad.PropietarioNombre,
		Orden:             unidad.Orden,
		Adeudo:            input.Adeudo,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		if utils.IsDuplicateKeyErr(err) {
			return nil, utils.ErrUnidadDiaExists
		}
		return nil, err
	}
	return &record, nil
}

// GetUnidadesDia lists all unit records for a company's day. No order is
// guaranteed; callers sort by Orden for display.
func GetUnidadesDia(ctx context.Context, empresa, fecha string) ([]*UnidadDia, error) {
	db := config.GetDB()
	var records []*UnidadDia
	err := db.WithContext(ctx).
		Where("dia_id = ?", utils.DayKey(empresa, fecha)).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetHistorialUnidad returns a unit's day records across days in ascending
// date order, optionally bounded. Used by accounts-receivable aging.
func GetHistorialUnidad(ctx context.Context, codigo string, desde, hasta *string) ([]*UnidadDia, error) {
	db := config.GetDB()
	query := db.WithContext(ctx).Where("codigo = ?", codigo)
	if desde != nil && *desde != "" {
		query = query.Where("fecha >= ?", *desde)
	}
	if hasta != nil && *hasta != "" {
		query = query.Where("fecha <= ?", *hasta)
	}

	var records []*UnidadDia
	if err := query.Order("fecha asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// GetUnidadDia fetches one unit-day record by its composite key.
// (may return RecordNotFound error)
func GetUnidadDia(ctx context.Context, diaId, unidadId string) (*UnidadDia, error) {
	db := config.GetDB()
	var record UnidadDia
	err := db.WithContext(ctx).
		Where("dia_id = ? AND id = ?", diaId, unidadId).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}
