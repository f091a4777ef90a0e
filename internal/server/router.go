package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sugarlabs-app/confessions/backend/internal/auth"
	"github.com/sugarlabs-app/confessions/backend/internal/confessions"
	"github.com/sugarlabs-app/confessions/backend/internal/feed"
	"github.com/sugarlabs-app/confessions/backend/internal/users"
)

const (
	subjectContextKey = "confessions_subject"
	roleContextKey    = "confessions_role"

	heartbeatInterval = 25 * time.Second
)

var (
	errMissingConfessionStore = errors.New("confession store dependency required")
	errMissingAccountService  = errors.New("account service dependency required")
	errMissingTokenManager    = errors.New("token manager dependency required")
	errMissingAdminGate       = errors.New("admin gate dependency required")
	errInvalidAuthorization   = errors.New("authorization header missing or invalid")
)

// TokenManager issues and validates bearer tokens.
type TokenManager interface {
	IssueToken(subject, role string) (string, int64, error)
	ValidateToken(token string) (string, string, error)
}

// AdminVerifier checks the configured admin principal.
type AdminVerifier interface {
	Verify(email, password string) error
	Subject() string
}

// Dependencies wires the router's collaborators.
type Dependencies struct {
	Confessions *confessions.Service
	Accounts    *users.Service
	Tokens      TokenManager
	AdminGate   AdminVerifier
	Dispatcher  *FeedDispatcher
	Logger      *zap.Logger
	Clock       func() time.Time

	// RateLimitRPS/-Burst bound mutating requests per client address.
	// Zero RPS disables the limiter (tests).
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewHTTPHandler builds the gin router for the confessions API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Confessions == nil {
		return nil, errMissingConfessionStore
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountService
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.AdminGate == nil {
		return nil, errMissingAdminGate
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = NewFeedDispatcher()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		confessions: deps.Confessions,
		accounts:    deps.Accounts,
		tokens:      deps.Tokens,
		adminGate:   deps.AdminGate,
		dispatcher:  dispatcher,
		logger:      logger,
		clock:       clock,
	}

	mutating := router.Group("/")
	if deps.RateLimitRPS > 0 {
		limiter := newIPRateLimiter(deps.RateLimitRPS, deps.RateLimitBurst)
		mutating.Use(rateLimitMiddleware(limiter))
	}

	router.GET("/confessions", handler.handleListFeed)
	router.GET("/events", handler.handleFeedEvents)
	mutating.POST("/confessions", handler.handleSubmitConfession)
	mutating.POST("/confessions/:id/like", handler.handleLikeConfession)
	mutating.POST("/user/register", handler.handleRegister)
	mutating.POST("/user/login", handler.handleLogin)
	mutating.POST("/admin/login", handler.handleAdminLogin)

	admin := router.Group("/")
	admin.Use(handler.authorizeAdmin)
	admin.DELETE("/confessions/:id", handler.handleDeleteConfession)

	return router, nil
}

type httpHandler struct {
	confessions *confessions.Service
	accounts    *users.Service
	tokens      TokenManager
	adminGate   AdminVerifier
	dispatcher  *FeedDispatcher
	logger      *zap.Logger
	clock       func() time.Time
}

type confessionPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Age      *int   `json:"age,omitempty"`
	City     string `json:"city,omitempty"`
	Body     string `json:"confession"`
	ImageB64 string `json:"image,omitempty"`
	Date     int64  `json:"date"`
	Likes    int64  `json:"likes"`
}

func toConfessionPayload(record confessions.Confession) confessionPayload {
	return confessionPayload{
		ID:       record.ID,
		Name:     record.DisplayName(),
		Age:      record.Age,
		City:     record.City,
		Body:     record.Body,
		ImageB64: record.ImageB64,
		Date:     record.CreatedAtSeconds,
		Likes:    record.Likes,
	}
}

func (h *httpHandler) handleListFeed(c *gin.Context) {
	mode, err := feed.ParseMode(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_sort"})
		return
	}

	records, err := h.confessions.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list confessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "feed_unavailable"})
		return
	}

	ranked, err := feed.Rank(records, mode, h.clock())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_sort"})
		return
	}

	payload := make([]confessionPayload, 0, len(ranked))
	for _, record := range ranked {
		payload = append(payload, toConfessionPayload(record))
	}
	c.JSON(http.StatusOK, gin.H{"confessions": payload})
}

type submitRequestPayload struct {
	Name     string `json:"name"`
	Age      *int   `json:"age"`
	City     string `json:"city"`
	Body     string `json:"confession"`
	ImageB64 string `json:"image"`
}

func (h *httpHandler) handleSubmitConfession(c *gin.Context) {
	var request submitRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	draft, err := confessions.NewDraft(request.Name, request.Age, request.City, request.Body, request.ImageB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_confession", "message": err.Error()})
		return
	}

	record, err := h.confessions.Create(c.Request.Context(), draft)
	if err != nil {
		h.logger.Error("failed to create confession", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "submit_failed"})
		return
	}

	h.dispatcher.Publish(FeedEvent{
		EventType:    FeedEventCreated,
		ConfessionID: record.ID,
		Timestamp:    h.clock().UTC(),
	})

	c.JSON(http.StatusCreated, gin.H{"confession": toConfessionPayload(record)})
}

func (h *httpHandler) handleLikeConfession(c *gin.Context) {
	id, err := confessions.NewConfessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return
	}

	err = h.confessions.IncrementLikes(c.Request.Context(), id)
	if errors.Is(err, confessions.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to like confession", zap.Error(err), zap.String("confession_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "like_failed"})
		return
	}

	h.dispatcher.Publish(FeedEvent{
		EventType:    FeedEventLiked,
		ConfessionID: id.String(),
		Timestamp:    h.clock().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleDeleteConfession(c *gin.Context) {
	id, err := confessions.NewConfessionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return
	}

	err = h.confessions.Delete(c.Request.Context(), id)
	if errors.Is(err, confessions.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to delete confession", zap.Error(err), zap.String("confession_id", id.String()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete_failed"})
		return
	}

	h.dispatcher.Publish(FeedEvent{
		EventType:    FeedEventDeleted,
		ConfessionID: id.String(),
		Timestamp:    h.clock().UTC(),
	})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request."})
		return
	}

	account, err := h.accounts.Register(c.Request.Context(), request.Email, request.Password)
	switch {
	case errors.Is(err, users.ErrInvalidEmail), errors.Is(err, users.ErrPasswordTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid email or password."})
		return
	case errors.Is(err, users.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Email already registered."})
		return
	case err != nil:
		h.logger.Error("failed to register account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Registration successful",
		"user":    gin.H{"id": account.ID, "email": account.Email},
	})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request."})
		return
	}

	account, err := h.accounts.Authenticate(c.Request.Context(), request.Email, request.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}
	if err != nil {
		h.logger.Error("failed to authenticate account", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(account.ID, auth.RoleUser)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Login successful",
		"access_token": token,
		"expires_in":   expiresIn,
		"token_type":   "Bearer",
	})
}

func (h *httpHandler) handleAdminLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request."})
		return
	}

	if err := h.adminGate.Verify(request.Email, request.Password); err != nil {
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(h.adminGate.Subject(), auth.RoleAdmin)
	if err != nil {
		h.logger.Error("failed to issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": token,
		"expires_in":   expiresIn,
		"token_type":   "Bearer",
	})
}

func (h *httpHandler) handleFeedEvents(c *gin.Context) {
	stream, cleanup := h.dispatcher.Subscribe(c.Request.Context())
	defer cleanup()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(event.EventType, event)
			return true
		case <-heartbeat.C:
			c.SSEvent(feedEventHeartbeat, gin.H{"timestamp": h.clock().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *httpHandler) authorizeAdmin(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, role, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if role != auth.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(subjectContextKey, subject)
	c.Set(roleContextKey, role)
	c.Next()
}
