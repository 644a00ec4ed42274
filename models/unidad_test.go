package models

import (
	"context"
	"testing"

	"bitbucket.org/rutacoop/flota_backend/utils"
	"github.com/stretchr/testify/require"
)

// Catalog writes validate before any database access: an unknown company or
// a blank code never reaches the store.
func TestUpsertUnidadValidatesBeforeWriting(t *testing.T) {
	var validationErr *utils.ValidationError

	err := UpsertUnidad(context.Background(), &Unidad{Empresa: "Costa", Codigo: "E01"})
	require.ErrorAs(t, err, &validationErr)

	err = UpsertUnidad(context.Background(), &Unidad{Empresa: "Panorama", Codigo: "   "})
	require.ErrorAs(t, err, &validationErr)
}
