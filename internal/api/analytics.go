package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/analytics"
	"github.com/primefragrance/cmms/internal/kpi"
)

func (s *server) mttr(c *gin.Context) {
	res, err := s.Analytics.MTTR(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, struct {
		Message string `json:"message"`
		kpi.MTTRResult
	}{"MTTR Berhasil Dihitung", res})
}

func (s *server) assetKPIs(c *gin.Context) {
	k, err := s.Analytics.AssetKPIs(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, k)
}

func (s *server) dashboard(c *gin.Context) {
	d, err := s.Analytics.Dashboard(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *server) calculateOEE(c *gin.Context) {
	var in kpi.OEEInput
	if err := c.ShouldBindJSON(&in); err != nil {
		s.invalid(c, err)
		return
	}
	res, err := s.Analytics.CalculateOEE(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, struct {
		*analytics.OEEReport
		Message string `json:"message"`
	}{res, "OEE berhasil dihitung"})
}

func (s *server) oeeAssets(c *gin.Context) {
	rows, err := s.Analytics.AssetsOEE(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *server) createPrediction(c *gin.Context) {
	var opts analytics.PredictionOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.invalid(c, err)
		return
	}
	pred, err := s.Analytics.CreatePrediction(c.Request.Context(), principal(c), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":         fmt.Sprintf("Predictive maintenance berhasil dibuat. Level risiko: %s", pred.Record.RiskLevel),
		"risk_level":      pred.Record.RiskLevel,
		"risk_percentage": pred.Record.RiskPercentage,
		"predictive_id":   fmt.Sprint(pred.Record.ID),
		"schedule_id":     fmt.Sprint(pred.Schedule.ID),
	})
}

func (s *server) riskAssessment(c *gin.Context) {
	rows, err := s.Analytics.RiskAssessment(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *server) recordEnergy(c *gin.Context) {
	var opts analytics.EnergyOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.invalid(c, err)
		return
	}
	rec, err := s.Analytics.RecordEnergy(c.Request.Context(), principal(c), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":           "Data konsumsi energi berhasil dicatat",
		"energy_id":         fmt.Sprint(rec.ID),
		"power_consumption": kpi.Round(rec.PowerConsumption, 2),
	})
}

func (s *server) energyAnalysis(c *gin.Context) {
	sum, err := s.Analytics.EnergyAnalysis(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *server) recordCost(c *gin.Context) {
	var opts analytics.CostOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.invalid(c, err)
		return
	}
	cost, err := s.Analytics.RecordCost(c.Request.Context(), principal(c), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Biaya maintenance berhasil dicatat",
		"cost_id": fmt.Sprint(cost.ID),
	})
}

func (s *server) costAnalysis(c *gin.Context) {
	sum, err := s.Analytics.CostAnalysis(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *server) setBudget(c *gin.Context) {
	var opts analytics.BudgetOpts
	if err := c.ShouldBindJSON(&opts); err != nil {
		s.invalid(c, err)
		return
	}
	_, replaced, err := s.Analytics.SetBudget(c.Request.Context(), principal(c), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	msg := "Budget berhasil ditetapkan"
	if replaced {
		msg = "Budget berhasil diupdate"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
