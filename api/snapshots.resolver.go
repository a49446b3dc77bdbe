package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

type GetSnapshotsRequest struct {
	// empty start is the first trade, empty end is yesterday
	Start string `json:"start"`
	End   string `json:"end"`
}

func (m *ApiHandler) getLiveSnapshot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	snapshot, err := m.LiveSnapshotService.Get(requestContext(c), userID)
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to get live snapshot: %w", err), c)
		return
	}
	c.JSON(200, snapshot)
}

func (m *ApiHandler) refreshLiveSnapshot(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	snapshot, err := m.LiveSnapshotService.Refresh(requestContext(c), userID)
	if err != nil {
		returnErrorJson(fmt.Errorf("failed to refresh live snapshot: %w", err), c)
		return
	}
	c.JSON(200, snapshot)
}

func bindRange(c *gin.Context) (GetSnapshotsRequest, bool) {
	requestBody := GetSnapshotsRequest{}
	if c.Request.ContentLength == 0 {
		return requestBody, true
	}
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(fmt.Errorf("failed to parse range: %w", err), c, 400)
		return requestBody, false
	}
	return requestBody, true
}

func (m *ApiHandler) getSnapshots(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	requestBody, ok := bindRange(c)
	if !ok {
		return
	}

	snapshots, err := m.ExportService.SnapshotSeries(requestContext(c), userID, requestBody.Start, requestBody.End)
	if err != nil {
		returnServiceError(err, c)
		return
	}
	c.JSON(200, snapshots)
}

func (m *ApiHandler) exportSnapshotsCSV(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	requestBody, ok := bindRange(c)
	if !ok {
		return
	}

	out, err := m.ExportService.SnapshotsCSV(requestContext(c), userID, requestBody.Start, requestBody.End)
	if err != nil {
		returnServiceError(err, c)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="snapshots.csv"`)
	c.Data(200, "text/csv", out)
}
