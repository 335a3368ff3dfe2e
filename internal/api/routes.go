package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/db"
	"github.com/primefragrance/cmms/internal/identity"
)

const (
	operator   = identity.RoleOperator
	technician = identity.RoleTechnician
	supervisor = identity.RoleSupervisor
	manager    = identity.RoleManager
)

var everyone = identity.Roles

// registerRoutes sets up all API routes on the gin router.
func (s *server) registerRoutes(router *gin.Engine) {
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Endpoint tidak ditemukan"})
	})
	router.GET("/static/uploads/:filename", s.servePhoto)

	public := router.Group("/api")
	public.GET("/health", s.health)
	public.POST("/login", s.login)

	api := router.Group("/api", Authenticate(s.Auth))
	role := RequireRole

	api.POST("/logout", s.logout)
	api.GET("/user-info", s.userInfo)
	api.POST("/admin/register", role(manager, supervisor), s.registerUser)
	api.GET("/admin/users", role(manager, supervisor), s.listUsers)
	api.GET("/technicians", role(supervisor), s.technicians)

	// Work orders.
	api.POST("/wo/request", role(operator), s.createWorkOrder)
	api.POST("/wo/:id/upload-photos", role(operator, technician), s.uploadPhotos)
	api.GET("/wo", role(everyone...), s.listWorkOrders)
	api.GET("/wo/new", role(supervisor), s.newWorkOrders)
	api.GET("/wo/assigned", role(technician), s.assignedWorkOrders)
	api.GET("/wo/completed", role(supervisor), s.completedWorkOrders)
	api.GET("/wo/:id", role(everyone...), s.getWorkOrder)
	api.GET("/wo/:id/events", role(everyone...), s.workOrderEvents)
	api.POST("/wo/assign/:id", role(supervisor), s.assignWorkOrder)
	api.POST("/wo/start/:id", role(technician), s.startWorkOrder)
	api.POST("/wo/complete/:id", role(technician), s.completeWorkOrder)
	api.POST("/wo/verify/:id", role(supervisor), s.verifyWorkOrder)
	api.GET("/work_orders/history", role(supervisor, manager, technician), s.history)
	api.GET("/work_orders/history.xlsx", role(supervisor, manager, technician), s.historyExport)

	// Stats per role.
	api.GET("/stats/operator", role(operator), s.operatorStats)
	api.GET("/stats/technician", role(technician), s.technicianStats)
	api.GET("/stats/supervisor", role(supervisor), s.supervisorStats)

	// Assets and inventory.
	api.GET("/assets", role(everyone...), s.listAssets)
	api.GET("/assets/detail", role(everyone...), s.assetDetails)
	api.GET("/assets/:name/components", role(operator, supervisor, technician), s.assetComponents)
	api.POST("/assets/create", role(manager, supervisor), s.createAsset)
	api.GET("/inventory", role(supervisor, manager, technician), s.listInventory)
	api.GET("/inventory/low-stock", role(supervisor, manager), s.lowStock)
	api.POST("/inventory/update/:id", role(supervisor), s.updateInventory)

	// Maintenance schedules.
	api.GET("/schedule", role(everyone...), s.listSchedules)
	api.GET("/schedule/upcoming", role(everyone...), s.upcomingSchedules)
	api.POST("/schedule/create", role(supervisor, manager), s.createSchedule)
	api.POST("/schedule/update/:id", role(supervisor, technician), s.updateSchedule)
	api.GET("/schedule/technician", role(technician), s.technicianSchedules)
	api.GET("/schedule/operator", role(operator), s.operatorSchedules)
	api.GET("/schedule/operator-upcoming", role(operator), s.operatorUpcoming)
	api.POST("/schedule/notify-operator", role(supervisor, manager), s.notifyOperators)

	// KPIs and analytics.
	api.GET("/kpi/mttr", role(manager), s.mttr)
	api.GET("/kpi/assets", role(manager), s.assetKPIs)
	api.GET("/kpi/dashboard", role(manager), s.dashboard)
	api.POST("/oee/calculate", role(manager, supervisor), s.calculateOEE)
	api.GET("/oee/assets", role(manager, supervisor), s.oeeAssets)
	api.POST("/predictive/maintenance", role(manager, supervisor), s.createPrediction)
	api.GET("/predictive/risk-assessment", role(manager, supervisor), s.riskAssessment)
	api.POST("/energy/consumption", role(manager, supervisor), s.recordEnergy)
	api.GET("/energy/analysis", role(manager, supervisor), s.energyAnalysis)
	api.POST("/costs/maintenance", role(manager, supervisor), s.recordCost)
	api.GET("/costs/analysis", role(manager), s.costAnalysis)
	api.POST("/costs/budget", role(manager), s.setBudget)
}

func (s *server) health(c *gin.Context) {
	database := "connected"
	if err := db.Ping(s.DB); err != nil {
		database = "disconnected"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": s.Now().Unix(),
		"database":  database,
	})
}
