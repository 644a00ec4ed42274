package models

import (
	"bitbucket.org/rutacoop/flota_backend/config"
	"bitbucket.org/rutacoop/flota_backend/utils"
)

func MigrateTable() {
	db := config.GetDB()

	utils.ErrorPanic(db.AutoMigrate(
		&Unidad{},
		&ReporteDia{}, &UnidadDia{},
		&Pago{}, &PagoAplicacion{}, &PagoAplicado{},
		&CierreCaja{}, &CierreCajaEgreso{},
		&LegacyUsuario{}, &LegacyReporteDiario{}, &LegacyPagoTotal{},
	))
}
