package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Unidad is a billable vehicle/owner pairing. The catalog is maintained by
// back office through UpsertUnidad; the billing core only reads it.
type Unidad struct {
	ID                string    `gorm:"primaryKey;size:128" json:"id"` // slug(empresa)_codigo
	Codigo            string    `gorm:"size:16;index;not null" json:"codigo"`
	Empresa           string    `gorm:"size:64;index;not null" json:"empresa"`
	PropietarioId     string    `gorm:"size:128;index" json:"propietarioId"`
	PropietarioNombre string    `gorm:"size:255" json:"propietarioNombre"`
	Orden             int       `gorm:"default:0" json:"orden"`
	Activo            bool      `gorm:"default:true" json:"activo"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Unidad) TableName() string { return "unidades" }

const unidadCacheTTL = 10 * time.Minute

func unidadCacheKey(empresa string) string {
	return "unidades:" + utils.Slugify(empresa)
}

// UpsertUnidad writes one catalog entry and drops the company's cached list
// so the next read sees it. The id is derived, never taken from the caller.
func UpsertUnidad(ctx context.Context, unidad *Unidad) error {
	if _, err := ParseEmpresa(unidad.Empresa); err != nil {
		return utils.NewValidationError("empresa", err.Error())
	}
	if strings.TrimSpace(unidad.Codigo) == "" {
		return utils.NewValidationError("codigo", "required")
	}
	unidad.Codigo = strings.TrimSpace(unidad.Codigo)
	unidad.ID = utils.UnidadKey(unidad.Empresa, unidad.Codigo)

	db := config.GetDB()
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"propietario_id", "propietario_nombre", "orden", "activo",
		}),
	}).Create(unidad).Error
	if err != nil {
		return err
	}
	return config.DeleteRedisKey(unidadCacheKey(unidad.Empresa))
}

// GetUnidades lists a company's units ordered for display, redis or db.
func GetUnidades(ctx context.Context, empresa string) ([]*Unidad, error) {
	redisKey := unidadCacheKey(empresa)

	var unidades []*Unidad
	exists, err := config.GetRedisObject(redisKey, &unidades)
	if err != nil {
		return nil, err
	}
	if exists {
		return unidades, nil
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).
		Where("empresa = ?", empresa).
		Order("orden asc").
		Find(&unidades).Error; err != nil {
		return nil, err
	}

	if err := config.SetRedisObject(redisKey, unidades, unidadCacheTTL); err != nil {
		return nil, err
	}
	return unidades, nil
}

// GetUnidadById fetches a single catalog entry by document id.
// (may return RecordNotFound error)
func GetUnidadById(ctx context.Context, id string) (*Unidad, error) {
	db := config.GetDB()
	var unidad Unidad
	err := db.WithContext(ctx).Where("id = ?", id).First(&unidad).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &unidad, nil
}

// BuildUnidadLookup loads the whole catalog into a (empresa, codigo) keyed
// map. The migration resolves legacy unit codes through this.
func BuildUnidadLookup(ctx context.Context) (map[string]*Unidad, error) {
	db := config.GetDB()
	var unidades []*Unidad
	if err := db.WithContext(ctx).Find(&unidades).Error; err != nil {
		return nil, err
	}

	lookup := make(map[string]*Unidad, len(unidades))
	for _, u := range unidades {
		lookup[utils.UnidadKey(u.Empresa, u.Codigo)] = u
	}
	return lookup, nil
}
