package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

func (m *ApiHandler) analysis(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	result, err := m.AnalysisService.Analyze(requestContext(c), userID)
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to analyze journal: %w", err), c)
		return
	}
	c.JSON(200, result.Timeframes)
}

type EmailAnalysisRequest struct {
	To string `json:"to"`
}

func (m *ApiHandler) emailAnalysis(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	if m.AnalysisDigestApp == nil {
		returnErrorJsonCode(fmt.Errorf("email digests are not configured"), c, 501)
		return
	}
	var requestBody EmailAnalysisRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse request: %w", err), c, 400)
		return
	}

	result, err := m.AnalysisDigestApp.SendDigest(requestContext(c), userID, requestBody.To)
	if err != nil {
		returnServiceError(err, c)
		return
	}
	c.JSON(200, gin.H{
		"asOf": result.AsOf,
		"sent": true,
	})
}
