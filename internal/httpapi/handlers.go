package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mensahub/internal/lookup"
	"mensahub/internal/menu"
	"mensahub/internal/notify"
	"mensahub/internal/user"
)

const requestTimeout = 10 * time.Second

// Refresher triggers a fresh scrape of the rolling window. Satisfied by
// the scrape orchestrator.
type Refresher interface {
	ScrapeWeek(ctx context.Context) (menu.WeekMenu, error)
}

// Handler exposes the subscriber and admin API.
type Handler struct {
	auth      *Auth
	profiles  ProfileService
	menus     MenuService
	engine    *notify.Engine
	refresher Refresher
	tables    *lookup.Tables
	log       *zap.Logger
}

// NewHandler wires the API handler.
func NewHandler(auth *Auth, profiles ProfileService, menus MenuService, engine *notify.Engine, refresher Refresher, tables *lookup.Tables, log *zap.Logger) *Handler {
	return &Handler{
		auth:      auth,
		profiles:  profiles,
		menus:     menus,
		engine:    engine,
		refresher: refresher,
		tables:    tables,
		log:       log,
	}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	api.GET("/health", h.Health)
	api.POST("/register", h.Register)

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(h.auth))
	{
		authorized.GET("/profile", h.GetProfile)
		authorized.PUT("/profile/survey", h.RedoSurvey)
		authorized.POST("/profile/mute", h.ToggleMute)

		authorized.GET("/menu/today", h.MenuToday)
		authorized.GET("/menu/day/:weekday", h.MenuDay)
		authorized.GET("/menu/week", h.MenuWeek)

		authorized.POST("/notifications", h.CreateNotification)
		authorized.GET("/notifications", h.ListNotifications)
		authorized.DELETE("/notifications/:id", h.DeleteNotification)
		authorized.POST("/choices", h.SubmitChoice)

		authorized.GET("/allergens", h.ListAllergens)
		authorized.GET("/allergens/:code", h.GetAllergen)
	}

	admin := authorized.Group("/admin")
	admin.Use(RequireAdmin())
	{
		admin.GET("/users", h.ListUsers)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.GET("/stats", h.MenuStats)
		admin.POST("/refetch", h.Refetch)
	}

	return router
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Register creates a profile after checking the shared registration
// password, and returns a token for the rest of the API.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.auth.CheckRegistrationPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong registration password"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.profiles.Register(ctx, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	token, err := h.auth.IssueToken(profile.ID, profile.IsAdmin)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      profile.ID,
		"token":   token,
		"profile": profileView(profile),
	})
}

func (h *Handler) GetProfile(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.profiles.Get(ctx, c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profileView(profile))
}

func (h *Handler) RedoSurvey(c *gin.Context) {
	var req SurveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profile, err := h.profiles.RedoSurvey(ctx, c.GetString("userID"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profileView(profile))
}

func (h *Handler) ToggleMute(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	muted, err := h.profiles.ToggleMute(ctx, c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": muted})
}

func (h *Handler) MenuToday(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	day, err := h.menus.DayForUser(ctx, c.GetString("userID"), c.Query("date"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *Handler) MenuDay(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	day, err := h.menus.DayForWeekday(ctx, c.GetString("userID"), c.Param("weekday"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *Handler) MenuWeek(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	week, err := h.menus.Week(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if week == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no menu data available"})
		return
	}
	c.JSON(http.StatusOK, week)
}

// CreateNotification registers a keyword watch and immediately runs the
// match check so an already-listed meal alerts right away.
func (h *Handler) CreateNotification(c *gin.Context) {
	var req struct {
		Keyword string `json:"keyword" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	userID := c.GetString("userID")
	notifID, err := h.profiles.AddNotification(ctx, userID, req.Keyword)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.engine.CheckUser(ctx, userID); err != nil {
		h.log.Error("instant keyword check failed",
			zap.String("user", userID), zap.Error(err))
	}

	c.JSON(http.StatusCreated, gin.H{"id": notifID, "keyword": req.Keyword})
}

func (h *Handler) ListNotifications(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	views, err := h.profiles.ListNotifications(ctx, c.GetString("userID"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": views})
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.profiles.DeleteNotification(ctx, c.GetString("userID"), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// SubmitChoice applies a reply to a previously delivered alert, e.g.
// arming a same-day reminder or deactivating the keyword.
func (h *Handler) SubmitChoice(c *gin.Context) {
	var req struct {
		Data string `json:"data" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, err := h.engine.HandleChoice(c.GetString("userID"), req.Data)
	if errors.Is(err, user.ErrStaleChoice) {
		c.JSON(http.StatusConflict, gin.H{"error": "stale choice", "message": text})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": text})
}

func (h *Handler) ListAllergens(c *gin.Context) {
	codes := h.tables.SortedAllergenCodes()
	entries := make([]gin.H, 0, len(codes))
	for _, code := range codes {
		entries = append(entries, gin.H{
			"code": code,
			"name": h.tables.AllergenText(code, ""),
		})
	}
	c.JSON(http.StatusOK, gin.H{"allergens": entries})
}

func (h *Handler) GetAllergen(c *gin.Context) {
	code := c.Param("code")
	if !h.tables.KnownAllergen(code) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown allergen code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "name": h.tables.AllergenText(code, "")})
}

func (h *Handler) ListUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	profiles, err := h.profiles.ListUsers(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	views := make([]gin.H, 0, len(profiles))
	for _, id := range profiles.SortedIDs() {
		views = append(views, profileView(profiles[id]))
	}
	c.JSON(http.StatusOK, gin.H{"users": views, "count": len(views)})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if err := h.profiles.DeleteUser(ctx, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *Handler) MenuStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	stats, err := h.menus.Stats(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Refetch scrapes the rolling window on demand and reruns the match pass
// against the fresh snapshot.
func (h *Handler) Refetch(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	week, err := h.refresher.ScrapeWeek(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.engine.RunMatchPass(ctx); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": len(week.WeekData)})
}

// fail maps service errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBadSurvey), errors.Is(err, notify.ErrBadChoice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNotifMissing),
		errors.Is(err, ErrNoMenu), errors.Is(err, notify.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUserExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func profileView(p *user.Profile) gin.H {
	return gin.H{
		"id":               p.ID,
		"name":             p.Name,
		"status":           p.PricingStatus,
		"diet_preferences": p.DietPreferences,
		"allergy_codes":    p.AllergyCodes,
		"is_admin":         p.IsAdmin,
		"is_muted":         p.IsMuted,
		"notifications":    len(p.Notifications),
	}
}
