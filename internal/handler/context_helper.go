package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/attendance-api/internal/models"
	"github.com/noah-isme/attendance-api/pkg/middleware/requestid"
)

func calculationMeta(c *gin.Context) models.CalculationMeta {
	return models.CalculationMeta{
		RequestID: requestid.Value(c),
		ClientIP:  c.ClientIP(),
	}
}
