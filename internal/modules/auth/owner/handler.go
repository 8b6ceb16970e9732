package owner

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rankforge/core/internal/middleware"
	appconfigs "github.com/rankforge/core/internal/modules/system/configs"
	"github.com/rankforge/core/internal/pkg/bark"
	"github.com/rankforge/core/internal/pkg/response"
	sessionpkg "github.com/rankforge/core/internal/pkg/session"
)

type Handler struct {
	svc     *Service
	cfgSvc  *appconfigs.Service
	barkSvc *bark.Service
}

func NewHandler(svc *Service, cfgSvc *appconfigs.Service, barkSvc *bark.Service) *Handler {
	return &Handler{svc: svc, cfgSvc: cfgSvc, barkSvc: barkSvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/owner")

	g.GET("", middleware.OptionalAuth(h.svc.db), h.getOwnerInfo)
	g.GET("/check_logged", middleware.OptionalAuth(h.svc.db), h.checkLogged)
	g.GET("/allow-login", h.allowLogin)
	g.POST("/login", h.login)
	g.POST("/register", h.register)

	a := g.Group("", authMW)
	a.PATCH("", h.updateProfile)
	a.PUT("/login", h.refreshToken)
	a.POST("/logout", h.logout)
	a.PATCH("/password", h.changePassword)
	a.GET("/session", h.listSessions)
	a.DELETE("/session/all", h.deleteAllSessions)
	a.DELETE("/session/:sessionId", h.deleteSession)
}

func (h *Handler) checkLogged(c *gin.Context) {
	isAuthenticated := middleware.IsAuthenticated(c)
	if !isAuthenticated {
		token := strings.TrimSpace(c.Query("token"))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token != "" {
			_, err := middleware.ValidateToken(h.svc.db, token)
			isAuthenticated = err == nil
		}
	}
	response.OK(c, gin.H{
		"ok":      boolToInt(isAuthenticated),
		"isGuest": !isAuthenticated,
	})
}

func (h *Handler) allowLogin(c *gin.Context) {
	passwordEnabled := true
	if h.cfgSvc != nil {
		if cfg, err := h.cfgSvc.Get(); err == nil && cfg != nil {
			passwordEnabled = !cfg.AuthSecurity.DisablePasswordLogin
		}
	}
	response.OK(c, gin.H{"password": passwordEnabled})
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if h.cfgSvc != nil {
		cfg, err := h.cfgSvc.Get()
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if cfg != nil && cfg.AuthSecurity.DisablePasswordLogin {
			response.BadRequest(c, "Password login is disabled")
			return
		}
	}
	ip := c.ClientIP()
	ua := c.Request.UserAgent()
	token, u, err := h.svc.Login(dto.Username, dto.Password, ip, ua, h.sessionTTL())
	if err != nil {
		if errors.Is(err, errOwnerNotFound) {
			response.ForbiddenMsg(c, "Unknown username")
			return
		}
		if errors.Is(err, errWrongPassword) {
			response.ForbiddenMsg(c, "Wrong password")
			return
		}
		response.InternalError(c, err)
		return
	}
	h.notifyLogin(u.Username, ip, ua)
	response.OK(c, loginResponse{Token: token, User: toResponse(u)})
}

func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		if errors.Is(err, errOwnerAlreadyExists) {
			response.BadRequest(c, "This workspace already has an owner")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, toResponse(u))
}

func (h *Handler) getOwnerInfo(c *gin.Context) {
	u, err := h.svc.GetOwner()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	if !middleware.IsAuthenticated(c) {
		response.OK(c, toPublicResponse(u))
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) updateProfile(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	var dto UpdateOwnerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateProfile(userID, &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if u == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, toResponse(u))
}

func (h *Handler) logout(c *gin.Context) {
	sessionID := middleware.CurrentSessionID(c)
	if sessionID != "" {
		_ = sessionpkg.Revoke(h.svc.db, middleware.CurrentUserID(c), sessionID)
	}
	response.NoContent(c)
}

// refreshToken issues a fresh session token and retires the current one.
func (h *Handler) refreshToken(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		response.Unauthorized(c)
		return
	}
	currentSessionID := middleware.CurrentSessionID(c)
	token, _, err := sessionpkg.Issue(h.svc.db, userID, c.ClientIP(), c.Request.UserAgent(), h.sessionTTL())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if currentSessionID != "" {
		_ = sessionpkg.Revoke(h.svc.db, userID, currentSessionID)
	}
	response.OK(c, gin.H{"token": token})
}

func (h *Handler) changePassword(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	keep := middleware.CurrentSessionID(c)
	if err := h.svc.ChangePassword(userID, dto.OldPassword, dto.NewPassword, keep); err != nil {
		if errors.Is(err, errWrongPassword) {
			response.BadRequest(c, "Wrong password")
			return
		}
		if errors.Is(err, errPasswordSameAsOld) {
			response.UnprocessableEntity(c, "New password must differ from the old one")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	currentSessionID := middleware.CurrentSessionID(c)

	sessions, err := sessionpkg.ListActive(h.svc.db, userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	data := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		data = append(data, gin.H{
			"id":      s.ID,
			"ua":      s.UA,
			"ip":      s.IP,
			"date":    s.UpdatedAt,
			"current": s.ID == currentSessionID,
		})
	}
	response.OK(c, gin.H{"data": data})
}

func (h *Handler) deleteSession(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	sessionID := c.Param("sessionId")
	if err := sessionpkg.Revoke(h.svc.db, userID, sessionID); err != nil {
		response.NotFoundMsg(c, "Session not found")
		return
	}
	response.NoContent(c)
}

func (h *Handler) deleteAllSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if err := sessionpkg.RevokeAllExcept(h.svc.db, userID, middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) sessionTTL() time.Duration {
	if h.cfgSvc != nil {
		if cfg, err := h.cfgSvc.Get(); err == nil && cfg != nil && cfg.AuthSecurity.SessionTTLDays > 0 {
			return time.Duration(cfg.AuthSecurity.SessionTTLDays) * 24 * time.Hour
		}
	}
	return sessionpkg.DefaultTTL
}

func (h *Handler) notifyLogin(username, ip, ua string) {
	if h.barkSvc == nil || h.cfgSvc == nil {
		return
	}
	cfg, err := h.cfgSvc.Get()
	if err != nil || cfg == nil || !cfg.BarkOptions.EnableLoginAlert {
		return
	}
	go func() {
		_ = h.barkSvc.Push("Login alert", fmt.Sprintf("%s logged in from %s (%s)", username, ip, ua))
	}()
}
