package main

import (
	"errors"
	"net/http"

	"bitbucket.org/rutacoop/flota_backend/models"
	"bitbucket.org/rutacoop/flota_backend/utils"
	"bitbucket.org/rutacoop/flota_backend/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func registerRoutes(api *gin.RouterGroup) {
	api.GET("/unidades", listUnidades)
	api.POST("/unidades", upsertUnidad)
	api.GET("/unidades/:codigo/historial", getHistorialUnidad)
	api.GET("/unidades/:codigo/pagos", listPagosUnidad)

	api.POST("/reportes-dia/:empresa/:fecha", ensureReporteDia)
	api.GET("/reportes-dia/:empresa/:fecha/unidades", listUnidadesDia)
	api.POST("/reportes-dia/:empresa/:fecha/unidades", createUnidadDia)

	api.POST("/pagos", applyPago)

	api.GET("/cierre-caja/:fecha", getCierreCaja)
	api.POST("/cierre-caja/:fecha", persistCierreCaja)
	api.DELETE("/cierre-caja/:fecha", deleteCierreCaja)
}

// requireRecaudador gates write operations on the actor's role.
func requireRecaudador(c *gin.Context) bool {
	role, _ := utils.GetRoleFromContext(c.Request.Context())
	if !models.PuedeRecaudar(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "operación no permitida para el rol"})
		return false
	}
	return true
}

// requireAdministrador gates catalog maintenance.
func requireAdministrador(c *gin.Context) bool {
	role, _ := utils.GetRoleFromContext(c.Request.Context())
	if role != string(models.RolAdministrador) {
		c.JSON(http.StatusForbidden, gin.H{"error": "operación no permitida para el rol"})
		return false
	}
	return true
}

// respondBindError maps JSON-binding failures to a field -> failed-rule map.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
}

func respondError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrUnidadDiaExists):
		c.JSON(http.StatusConflict, gin.H{"error": "ya existe un registro para esa unidad en ese día"})
	case errors.Is(err, utils.ErrorRecordNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no encontrado"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func listUnidades(c *gin.Context) {
	empresa := c.Query("empresa")
	if _, err := models.ParseEmpresa(empresa); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	unidades, err := models.GetUnidades(c.Request.Context(), empresa)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unidades)
}

func upsertUnidad(c *gin.Context) {
	if !requireAdministrador(c) {
		return
	}

	var unidad models.Unidad
	if err := c.ShouldBindJSON(&unidad); err != nil {
		respondBindError(c, err)
		return
	}
	if err := models.UpsertUnidad(c.Request.Context(), &unidad); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unidad)
}

func getHistorialUnidad(c *gin.Context) {
	codigo := c.Param("codigo")
	desde := c.Query("desde")
	hasta := c.Query("hasta")
	records, err := models.GetHistorialUnidad(c.Request.Context(), codigo, &desde, &hasta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func listPagosUnidad(c *gin.Context) {
	empresa := c.Query("empresa")
	if _, err := models.ParseEmpresa(empresa); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pagos, err := models.GetPagosByUnidad(c.Request.Context(), utils.UnidadKey(empresa, c.Param("codigo")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pagos)
}

func ensureReporteDia(c *gin.Context) {
	if !requireRecaudador(c) {
		return
	}
	empresa := c.Param("empresa")
	if _, err := models.ParseEmpresa(empresa); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	header, err := models.EnsureReporteDia(c.Request.Context(), empresa, c.Param("fecha"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, header)
}

func listUnidadesDia(c *gin.Context) {
	records, err := models.GetUnidadesDia(c.Request.Context(), c.Param("empresa"), c.Param("fecha"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func createUnidadDia(c *gin.Context) {
	if !requireRecaudador(c) {
		return
	}

	var body struct {
		Codigo string         `json:"codigo" binding:"required"`
		Adeudo models.Buckets `json:"adeudo"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	record, err := models.CreateUnidadDia(c.Request.Context(), &models.NewUnidadDia{
		Empresa: c.Param("empresa"),
		Fecha:   c.Param("fecha"),
		Codigo:  body.Codigo,
		Adeudo:  body.Adeudo,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func applyPago(c *gin.Context) {
	if !requireRecaudador(c) {
		return
	}

	var input workflow.NewPagoInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	pago, err := workflow.ApplyPago(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pago)
}

func getCierreCaja(c *gin.Context) {
	fecha := c.Param("fecha")
	items, err := workflow.GetCierreItems(c.Request.Context(), fecha)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{
		"fecha": fecha,
		"items": items,
		"total": workflow.ComputeTotal(items),
	}
	if cierre, egresos, err := models.GetCierreCaja(c.Request.Context(), fecha); err == nil {
		resp["cierre"] = cierre
		resp["egresos"] = egresos
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func persistCierreCaja(c *gin.Context) {
	if !requireRecaudador(c) {
		return
	}

	var body struct {
		Egresos []models.CierreCajaEgreso `json:"egresos"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}

	fecha := c.Param("fecha")
	items, err := workflow.GetCierreItems(c.Request.Context(), fecha)
	if err != nil {
		respondError(c, err)
		return
	}
	cierre, err := workflow.PersistCierre(c.Request.Context(), fecha, items, body.Egresos)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cierre)
}

func deleteCierreCaja(c *gin.Context) {
	if !requireRecaudador(c) {
		return
	}
	if err := workflow.DeleteCierre(c.Request.Context(), c.Param("fecha")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("fecha")})
}
