package models

import (
	"context"
	"time"

	"bitbucket.org/rutacoop/flota_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CierreCaja is the end-of-day close snapshot, keyed by the ISO date it
// covers. Re-closing the same date merges over the previous snapshot.
type CierreCaja struct {
	Fecha         string          `gorm:"primaryKey;size:10" json:"fecha"`
	TotalIngresos decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"totalIngresos"`
	TotalEgresos  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"totalEgresos"`
	Balance       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"balance"`
	NumPagos      int             `gorm:"default:0" json:"numPagos"`
	ArchivoUrl    string          `gorm:"size:512;default:null" json:"archivoUrl,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (CierreCaja) TableName() string { return "cierres_caja" }

// CierreCajaEgreso is a manual expense line listed on a close.
type CierreCajaEgreso struct {
	ID          int             `gorm:"primary_key" json:"id"`
	CierreFecha string          `gorm:"size:10;index;not null" json:"cierreFecha"`
	Descripcion string          `gorm:"size:255;not null" json:"descripcion"`
	Monto       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"monto"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (CierreCajaEgreso) TableName() string { return "cierres_caja_egresos" }

// UpsertCierreCaja merges the snapshot for its date and replaces the listed
// manual expenses, in one transaction.
func UpsertCierreCaja(ctx context.Context, cierre *CierreCaja, egresos []CierreCajaEgreso) error {
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "fecha"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_ingresos", "total_egresos", "balance", "num_pagos", "archivo_url", "updated_at",
			}),
		}).Create(cierre).Error
		if err != nil {
			return err
		}

		if err := tx.Where("cierre_fecha = ?", cierre.Fecha).
			Delete(&CierreCajaEgreso{}).Error; err != nil {
			return err
		}
		for i := range egresos {
			egresos[i].CierreFecha = cierre.Fecha
		}
		if len(egresos) == 0 {
			return nil
		}
		return tx.Create(&egresos).Error
	})
}

// GetCierreCaja fetches a close snapshot with its expense lines.
// (may return RecordNotFound error)
func GetCierreCaja(ctx context.Context, fecha string) (*CierreCaja, []CierreCajaEgreso, error) {
	db := config.GetDB()
	var cierre CierreCaja
	if err := db.WithContext(ctx).Where("fecha = ?", fecha).First(&cierre).Error; err != nil {
		return nil, nil, err
	}
	var egresos []CierreCajaEgreso
	if err := db.WithContext(ctx).Where("cierre_fecha = ?", fecha).Find(&egresos).Error; err != nil {
		return nil, nil, err
	}
	return &cierre, egresos, nil
}

// DeleteCierreCaja removes the snapshot row and its expense lines, returning
// the stored artifact URL so the caller can clean it up best-effort.
func DeleteCierreCaja(ctx context.Context, fecha string) (string, error) {
	db := config.GetDB()

	var cierre CierreCaja
	if err := db.WithContext(ctx).Where("fecha = ?", fecha).First(&cierre).Error; err != nil {
		return "", err
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cierre_fecha = ?", fecha).Delete(&CierreCajaEgreso{}).Error; err != nil {
			return err
		}
		return tx.Where("fecha = ?", fecha).Delete(&CierreCaja{}).Error
	})
	if err != nil {
		return "", err
	}
	return cierre.ArchivoUrl, nil
}
