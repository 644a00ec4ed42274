package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Empresa identifies the operating company a unit bills under. The catalog
// only ever carries this fixed set.
type Empresa string

const (
	EmpresaPanorama Empresa = "Panorama"
	EmpresaAndina   Empresa = "Andina"
)

var Empresas = []Empresa{EmpresaPanorama, EmpresaAndina}

func ParseEmpresa(s string) (Empresa, error) {
	for _, e := range Empresas {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("empresa desconocida: %q", s)
}

// TarifaAdministracionDiaria is the flat daily administration fee owed by
// every active unit.
var TarifaAdministracionDiaria = decimal.NewFromInt(2)

type RolUsuario string

const (
	RolAdministrador RolUsuario = "administrador"
	RolRecaudador    RolUsuario = "recaudador"
	RolConsulta      RolUsuario = "consulta"
)

// PuedeRecaudar reports whether a role string is allowed to run write
// operations (payments, day creation, closes). The engine itself trusts the
// caller's check; this helper lives at the handler edge.
func PuedeRecaudar(role string) bool {
	return role == string(RolAdministrador) || role == string(RolRecaudador)
}
