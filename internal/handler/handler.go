package handler

import (
	"net/http"
	"strconv"
	"time"

	"tourops/internal/model"
	"tourops/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler структурирует зависимости сервисов для обработки HTTP-запросов.
type Handler struct {
	Auth        *service.AuthService
	Access      *service.AccessService
	Tours       *service.TourService
	Steps       *service.StepService
	Assignments *service.AssignmentService
	Suppliers   *service.SupplierService
	Settings    *service.SettingsService
	Bind        *service.BindService
	Resolve     *service.ResolveService
	Activity    *service.ActivityService
	Admin       *service.AdminService
}

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(router *gin.Engine, hookSecret string) {
	router.POST("/api/auth/login", h.Login)

	// Публичная ссылка ответа поставщика — без авторизации.
	router.GET("/r/:token/:decision", h.RespondByLink)

	// Вебхук чат-бота — проверка общего секрета, без JWT.
	router.POST("/webhook/chat", h.ChatWebhook(hookSecret))

	api := router.Group("/api", h.RequireAuth())
	{
		api.POST("/tours", h.CreateTour)
		api.GET("/tours/:id", h.GetTour)
		api.POST("/tours/:id/days", h.AddDay)
		api.POST("/days/:id/steps", h.AddStep)

		api.POST("/steps/:id/status", h.SetStepStatus)
		api.POST("/steps/:id/requests", h.EnsureRequests)
		api.POST("/steps/:id/suppliers", h.AssignSupplier)
		api.DELETE("/steps/:id/suppliers/:supplierID", h.RemoveSupplier)
		api.GET("/steps/:id/events", h.StepEvents)
		api.GET("/steps/:id/activity", h.StepActivity)

		api.POST("/suppliers", h.CreateSupplier)
		api.GET("/suppliers", h.ListSuppliers)
		api.POST("/suppliers/:id/bind-code", h.IssueBindCode)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.SaveSettings)

		api.POST("/users", h.CreateUser)
		api.POST("/tenants", h.CreateTenant)
		api.POST("/tenants/:id/members", h.AddMember)
	}
}

// tenantOrDefault возвращает tenant_id из запроса, а при нуле — компанию
// первого активного членства пользователя.
func (h *Handler) tenantOrDefault(c *gin.Context, tenantID int) int {
	if tenantID != 0 {
		return tenantID
	}
	return h.Access.ResolveTenant(principal(c))
}

// Login обработчик для POST /api/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуются email и password"})
		return
	}
	token, err := h.Auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateTour обработчик для POST /api/tours.
// Без tenant_id тур создается в компании членства пользователя.
func (h *Handler) CreateTour(c *gin.Context) {
	var req struct {
		TenantID int    `json:"tenant_id"`
		Name     string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуется name"})
		return
	}
	id, err := h.Tours.CreateTour(principal(c), h.tenantOrDefault(c, req.TenantID), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// GetTour обработчик для GET /api/tours/:id.
func (h *Handler) GetTour(c *gin.Context) {
	tour, err := h.Tours.GetTour(principal(c), pathID(c, "id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tour)
}

// AddDay обработчик для POST /api/tours/:id/days.
func (h *Handler) AddDay(c *gin.Context) {
	var req struct {
		Date string `json:"date" binding:"required"` // YYYY-MM-DD
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуется date"})
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date в формате YYYY-MM-DD"})
		return
	}
	id, err := h.Tours.AddDay(principal(c), pathID(c, "id"), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// AddStep обработчик для POST /api/days/:id/steps.
func (h *Handler) AddStep(c *gin.Context) {
	var req struct {
		Kind        string `json:"kind" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуются kind и title"})
		return
	}
	id, err := h.Tours.AddStep(principal(c), pathID(c, "id"), req.Kind, req.Title, req.Description)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// SetStepStatus обработчик для POST /api/steps/:id/status.
func (h *Handler) SetStepStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
		Silent bool   `json:"silent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуется status"})
		return
	}
	if err := h.Steps.SetStatus(principal(c), pathID(c, "id"), req.Status, req.Reason, req.Silent); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// EnsureRequests обработчик для POST /api/steps/:id/requests —
// дорассылка заявок поставщикам без открытых токенов.
func (h *Handler) EnsureRequests(c *gin.Context) {
	if err := h.Steps.EnsureRequests(principal(c), pathID(c, "id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// AssignSupplier обработчик для POST /api/steps/:id/suppliers.
func (h *Handler) AssignSupplier(c *gin.Context) {
	var req struct {
		SupplierID int    `json:"supplier_id" binding:"required"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуется supplier_id"})
		return
	}
	if err := h.Assignments.Assign(principal(c), pathID(c, "id"), req.SupplierID, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// RemoveSupplier обработчик для DELETE /api/steps/:id/suppliers/:supplierID.
func (h *Handler) RemoveSupplier(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req) // причина проверяется сервисом
	err := h.Assignments.Remove(principal(c), pathID(c, "id"), pathID(c, "supplierID"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// StepEvents обработчик для GET /api/steps/:id/events — журнал аудита шага.
func (h *Handler) StepEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.Activity.Events(principal(c), pathID(c, "id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// StepActivity обработчик для GET /api/steps/:id/activity — сводная лента.
func (h *Handler) StepActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.Activity.Timeline(principal(c), pathID(c, "id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateSupplier обработчик для POST /api/suppliers.
// Без tenant_id поставщик создается в компании членства пользователя.
func (h *Handler) CreateSupplier(c *gin.Context) {
	var req struct {
		TenantID int    `json:"tenant_id"`
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуется name"})
		return
	}
	id, err := h.Suppliers.Create(principal(c), h.tenantOrDefault(c, req.TenantID), req.Name, req.Email, req.Phone)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListSuppliers обработчик для GET /api/suppliers?tenant_id=.
func (h *Handler) ListSuppliers(c *gin.Context) {
	tenantID, _ := strconv.Atoi(c.Query("tenant_id"))
	suppliers, err := h.Suppliers.List(principal(c), h.tenantOrDefault(c, tenantID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

// IssueBindCode обработчик для POST /api/suppliers/:id/bind-code.
func (h *Handler) IssueBindCode(c *gin.Context) {
	code, err := h.Bind.IssueBindCode(principal(c), pathID(c, "id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": code})
}

// GetSettings обработчик для GET /api/settings?tenant_id=.
func (h *Handler) GetSettings(c *gin.Context) {
	tenantID, _ := strconv.Atoi(c.Query("tenant_id"))
	settings, err := h.Settings.Get(principal(c), h.tenantOrDefault(c, tenantID))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SaveSettings обработчик для PUT /api/settings.
func (h *Handler) SaveSettings(c *gin.Context) {
	var req model.TenantSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуются настройки"})
		return
	}
	req.TenantID = h.tenantOrDefault(c, req.TenantID)
	if err := h.Settings.Save(principal(c), &req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CreateUser обработчик для POST /api/users (только администратор).
func (h *Handler) CreateUser(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуются email и password"})
		return
	}
	user, err := h.Admin.CreateUser(principal(c), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// CreateTenant обработчик для POST /api/tenants (только администратор).
func (h *Handler) CreateTenant(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуется name"})
		return
	}
	tenant, err := h.Admin.CreateTenant(principal(c), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tenant)
}

// AddMember обработчик для POST /api/tenants/:id/members (только администратор).
func (h *Handler) AddMember(c *gin.Context) {
	var req struct {
		UserID int    `json:"user_id" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "требуются user_id и role"})
		return
	}
	m, err := h.Admin.AddMember(principal(c), pathID(c, "id"), req.UserID, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// pathID читает числовой параметр пути (0 при ошибке — уйдет в "не найдено").
func pathID(c *gin.Context, name string) int {
	id, _ := strconv.Atoi(c.Param(name))
	return id
}
