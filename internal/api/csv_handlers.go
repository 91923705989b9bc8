package api

import (
	"errors"
	"net/http"

	"github.com/annel0/hexy-web/internal/csvmfr"
	"github.com/gin-gonic/gin"
)

// handlePipelineStage отдаёт пустую секцию стадии конвейера
func (rs *RestServer) handlePipelineStage(c *gin.Context) {
	html, err := rs.stages.PipelineStage()
	if err != nil {
		rs.logger.Error("Pipeline stage render failed: %v", err)
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}

// handleAddStage отдаёт поле ввода для выбранного типа стадии (форма stage_type)
func (rs *RestServer) handleAddStage(c *gin.Context) {
	html, err := rs.stages.StageBox(c.PostForm("stage_type"))
	switch {
	case errors.Is(err, csvmfr.ErrUnknownStage):
		c.String(http.StatusBadRequest, err.Error())
		return
	case err != nil:
		rs.logger.Error("Stage box render failed: %v", err)
		_ = c.Error(err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html))
}
