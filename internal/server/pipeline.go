package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"github.com/smallbiznis/vendora/internal/pipeline"
	"go.uber.org/zap"
)

type triggerRequest struct {
	Target string `json:"target" form:"target"`
}

// triggerPipeline acknowledges before any work happens: the cron caller only
// needs to know the trigger landed, and the run itself reports through logs
// and the runs endpoint.
func (s *Server) triggerPipeline(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBind(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "msg": "invalid trigger payload"})
		return
	}
	if req.Target == "" {
		req.Target = c.Query("target")
	}

	runID, err := s.orchestrator.Trigger(c.Request.Context(), req.Target)
	if err != nil {
		s.log.Error("pipeline.trigger.failed", zap.String("target", req.Target), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "msg": "error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true, "msg": "pipeline triggered", "run_id": runID})
}

func (s *Server) listPipelineRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	var runs []pipeline.PipelineRun
	query := s.db.WithContext(c.Request.Context()).Order("started_at DESC").Limit(limit)
	if target := c.Query("target"); target != "" {
		query = query.Where("target = ?", target)
	}
	if err := query.Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "msg": "error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true, "data": runs})
}

func (s *Server) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "msg": "invalid order id"})
		return
	}

	order, err := s.orderRepo.FindByID(c.Request.Context(), snowflake.ID(id))
	if err != nil {
		if errors.Is(err, orderdomain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"status": false, "msg": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": false, "msg": "error occurred"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": true, "data": order})
}
