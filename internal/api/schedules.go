package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/schedule"
)

func (s *server) listSchedules(c *gin.Context) {
	views, err := s.Schedules.List(c.Request.Context(), principal(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *server) upcomingSchedules(c *gin.Context) {
	views, err := s.Schedules.Upcoming(c.Request.Context(), principal(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *server) technicianSchedules(c *gin.Context) {
	views, err := s.Schedules.ForTechnician(c.Request.Context(), principal(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *server) operatorSchedules(c *gin.Context) {
	views, err := s.Schedules.ForOperator(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *server) operatorUpcoming(c *gin.Context) {
	views, err := s.Schedules.OperatorUpcoming(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (s *server) createSchedule(c *gin.Context) {
	var opts schedule.CreateOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.invalid(c, err)
		return
	}
	sch, err := s.Schedules.Create(c.Request.Context(), principal(c), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Jadwal maintenance berhasil dibuat",
		"schedule_id": fmt.Sprint(sch.ID),
	})
}

func (s *server) updateSchedule(c *gin.Context) {
	var opts schedule.UpdateOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.invalid(c, err)
		return
	}
	sch, err := s.Schedules.Update(c.Request.Context(), principal(c), c.Param("id"), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Jadwal berhasil diupdate", "status": sch.Status})
}

type notifyRequest struct {
	ScheduleID string `json:"schedule_id"`
	Message    string `json:"message"`
}

func (s *server) notifyOperators(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.invalid(c, err)
		return
	}
	notice, err := s.Schedules.NotifyOperators(c.Request.Context(), principal(c), req.ScheduleID, req.Message)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Notifikasi berhasil dikirim",
		"schedule":       notice.Schedule,
		"scheduled_date": notice.ScheduledDate,
	})
}
