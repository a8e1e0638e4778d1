package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kiosk/internal/admin"
	"kiosk/internal/auth"
	"kiosk/internal/checkin"
	"kiosk/internal/config"
	"kiosk/internal/httpmiddleware"
	"kiosk/internal/queue"
	"kiosk/internal/roster"
	"kiosk/internal/store"
	"kiosk/internal/tally"
)

var scansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "kiosk_scans_total",
	Help: "Scan outcomes by result.",
}, []string{"outcome"})

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	prometheus.MustRegister(scansTotal)

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		// The memory queue lives inside this process only. The worker
		// binary cannot see it, so tallies stay stale unless the redis
		// backend is used.
		log.Printf("queue backend %q is process-local; run the redis backend to feed the worker", cfg.QueueBackend)
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "kiosk:scans")
	}

	eventRepo := checkin.NewRepository(db.Client)
	rosterRepo := roster.NewRepository(db.Client)
	adminRepo := admin.NewRepository(db.Client)

	scanSvc := checkin.NewService(rosterRepo, eventRepo, eventRepo, cfg.Floors, cfg.FallbackCutoff)
	importer := roster.NewImporter(rosterRepo, cfg.ColumnAliases)
	adminSvc := admin.NewService(adminRepo)
	counters := tally.New(redisClient.Client)

	ctx := context.Background()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy})
	})

	// Terminals register once per boot and scan with the returned token.
	r.POST("/v1/terminals/register", func(c *gin.Context) {
		var req struct {
			TerminalID string `json:"terminal_id" binding:"required"`
			Floor      int    `json:"floor" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := eventRepo.RegisterTerminal(c.Request.Context(), req.TerminalID, req.Floor); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		token, err := auth.Issue(req.TerminalID, auth.RoleTerminal, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.TerminalTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token": token.Value,
			"expires_at":   token.ExpiresAt.Unix(),
		})
	})

	terminalGroup := r.Group("/v1", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleTerminal))

	terminalGroup.POST("/scans", func(c *gin.Context) {
		var req struct {
			Floor int    `json:"floor" binding:"required"`
			Code  string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := scanSvc.RegisterScan(c.Request.Context(), req.Floor, req.Code)
		if errors.Is(err, checkin.ErrInvalidFloor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			log.Printf("scan failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record check-in"})
			return
		}

		switch {
		case res.Accepted:
			scansTotal.WithLabelValues("recorded").Inc()
		case res.Duplicate:
			scansTotal.WithLabelValues("duplicate").Inc()
		default:
			scansTotal.WithLabelValues("invalid").Inc()
		}

		if res.Accepted {
			if err := q.Publish(ctx, queue.Message{Type: "scan", Body: []byte(res.EventID)}); err != nil {
				log.Printf("queue publish failed: %v", err)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"accepted":       res.Accepted,
			"duplicate":      res.Duplicate,
			"shift":          res.Shift,
			"time":           res.Time.Format("15:04:05"),
			"identity_found": res.IdentityFound,
			"identity":       res.Identity,
			"message":        res.Message,
		})
	})

	// Live occupancy counter for kiosk screens. Redis tallies first, store
	// count when the cache is cold.
	terminalGroup.GET("/counter", func(c *gin.Context) {
		floor := 0
		if v := c.Query("floor"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil {
				floor = parsed
			}
		}
		now := time.Now()
		date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

		if n, ok, err := counters.Count(c.Request.Context(), date, floor); err == nil && ok {
			c.JSON(http.StatusOK, gin.H{"total": n})
			return
		}
		n, err := eventRepo.CountForDate(c.Request.Context(), date, floor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "count unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": n})
	})

	// Kiosk unlock check: any client may present the master password.
	r.POST("/v1/kiosk/verify", func(c *gin.Context) {
		var req struct {
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ok, err := adminSvc.VerifyMasterPassword(c.Request.Context(), req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verification unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": ok})
	})

	adminIP := httpmiddleware.AdminIPAllowlist(cfg.AllowedAdminIPs)

	r.POST("/v1/admin/login", adminIP, func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := adminSvc.Login(c.Request.Context(), req.Username, req.Password); err != nil {
			if errors.Is(err, admin.ErrInvalidCredentials) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login unavailable"})
			return
		}
		token, err := auth.Issue(req.Username, auth.RoleAdmin, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AdminTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"access_token": token.Value,
			"expires_at":   token.ExpiresAt.Unix(),
		})
	})

	adminGroup := r.Group("/v1/admin", adminIP, auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleAdmin))

	adminGroup.POST("/roster/import", func(c *gin.Context) {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
			return
		}
		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not open upload"})
			return
		}
		defer f.Close()

		res, err := importer.Import(c.Request.Context(), f)
		if err != nil {
			log.Printf("roster import failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
			return
		}
		c.JSON(http.StatusOK, res)
	})

	adminGroup.GET("/students", func(c *gin.Context) {
		qs := c.Query("q")
		if qs == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter required"})
			return
		}
		ident, err := rosterRepo.Search(c.Request.Context(), qs)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search unavailable"})
			return
		}
		if ident == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no student found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"national_id":     ident.NationalID,
			"enrollment_code": ident.EnrollmentCode,
			"name":            ident.FullName,
			"school":          ident.School,
			"faculty":         ident.Faculty,
			"semester":        ident.Semester,
			"status":          ident.Status,
		})
	})

	adminGroup.PUT("/students/:id/status", func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		status, ok := roster.ParseStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be REGULAR or GRADUATED"})
			return
		}
		updated, err := rosterRepo.UpdateStatus(c.Request.Context(), c.Param("id"), status)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update unavailable"})
			return
		}
		if !updated {
			c.JSON(http.StatusNotFound, gin.H{"error": "no student found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	adminGroup.POST("/users", func(c *gin.Context) {
		var req struct {
			Username string  `json:"username" binding:"required"`
			Email    *string `json:"email"`
			Password string  `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := adminSvc.CreateUser(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
			if errors.Is(err, admin.ErrUserExists) {
				c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	adminGroup.GET("/users", func(c *gin.Context) {
		users, err := adminSvc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	})

	adminGroup.PUT("/users/:name/active", func(c *gin.Context) {
		var req struct {
			Active *bool `json:"active" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated, err := adminSvc.SetActive(c.Request.Context(), c.Param("name"), *req.Active)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update unavailable"})
			return
		}
		if !updated {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such user"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for the kiosk and admin frontends.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
