package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// repairPrices retries the caller's queued prices now instead of
// waiting for the scheduled run
func (m *ApiHandler) repairPrices(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	result, err := m.PriceRepairService.RepairUser(requestContext(c), userID)
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to repair prices: %w", err), c)
		return
	}
	if result.Repaired > 0 {
		if err := m.LiveSnapshotService.Invalidate(requestContext(c), userID); err != nil {
			returnErrorJson(err, c)
			return
		}
	}
	c.JSON(200, result)
}
