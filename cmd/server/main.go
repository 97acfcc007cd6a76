package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/procurechain/procurechain/internal/auth"
	"github.com/procurechain/procurechain/internal/cache"
	"github.com/procurechain/procurechain/internal/database"
	"github.com/procurechain/procurechain/internal/errors"
	"github.com/procurechain/procurechain/internal/ledger"
	"github.com/procurechain/procurechain/internal/middleware"
	"github.com/procurechain/procurechain/internal/monitoring"
	"github.com/procurechain/procurechain/internal/ratelimit"
	"github.com/procurechain/procurechain/internal/scoring"
	"github.com/procurechain/procurechain/internal/security"
	"github.com/procurechain/procurechain/internal/types"
)

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	port := getEnvOrDefault("PORT", "8080")
	jwtSecret := getEnvOrDefault("JWT_SECRET", "change-me-in-production")
	redisAddr := os.Getenv("REDIS_ADDR")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := getEnvInt("REDIS_DB", 0)
	llmEndpoint := os.Getenv("LLM_ENDPOINT")
	llmAPIKey := os.Getenv("LLM_API_KEY")

	// Initialize database and repository
	db, err := database.NewDB(dataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := database.NewRepository(db)
	auditLedger := ledger.New(repo)

	// Scoring engine; weights are overridable for pilot deployments
	scoringConfig := scoring.DefaultConfig()
	scoringConfig.PriceWeight = getEnvFloat("PRICE_WEIGHT", scoringConfig.PriceWeight)
	scoringConfig.VendorWeight = getEnvFloat("VENDOR_WEIGHT", scoringConfig.VendorWeight)
	scoringConfig.TechnicalWeight = getEnvFloat("TECHNICAL_WEIGHT", scoringConfig.TechnicalWeight)

	// LLM proposal assessment is optional; without an endpoint the
	// rule-based scorer handles the technical component alone
	var technical scoring.TechnicalScorer
	if llmEndpoint != "" {
		llmConfig := scoring.DefaultLLMConfig()
		llmConfig.Endpoint = llmEndpoint
		llmConfig.APIKey = llmAPIKey
		if model := os.Getenv("LLM_MODEL"); model != "" {
			llmConfig.Model = model
		}
		technical = scoring.NewLLMScorer(llmConfig, scoringConfig)
		slog.Info("LLM proposal scoring enabled", "model", llmConfig.Model)
	}

	engine, err := scoring.NewEngine(scoringConfig, technical)
	if err != nil {
		slog.Error("Failed to initialize scoring engine", "error", err)
		os.Exit(1)
	}

	procurement := database.NewService(repo, auditLedger, engine)
	authService := auth.NewService(repo, jwtSecret)

	// Seed the government account on first boot
	if code := os.Getenv("GOV_ACCESS_CODE"); code != "" {
		if err := seedGovernmentAccount(repo, code); err != nil {
			slog.Error("Failed to seed government account", "error", err)
			os.Exit(1)
		}
	}

	r := gin.New()

	// Initialize monitoring system
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	// Redis-backed rate limiting with in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(redisAddr, redisPassword, redisDB)
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting falls back to in-memory", "error", err)
	}
	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)
	defer limiter.Close()

	// Add compression middleware
	compressionMiddleware := middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())
	r.Use(compressionMiddleware.Handler())

	// Add monitoring middleware first (to capture all requests)
	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))
	r.Use(monitoring.SecurityMonitoringMiddleware(appLogger))

	// Add error handling middleware; recovery registers first so it
	// also catches panics raised while rendering an error response
	r.Use(errors.RecoveryHandler())
	r.Use(errors.ErrorHandler())

	// Security middleware setup
	securityConfig := security.DefaultSecurityConfig()
	securityMiddleware := security.NewSecurityMiddleware(securityConfig)
	securityMiddleware.Cleanup()

	r.Use(securityMiddleware.SecurityHeaders)
	r.Use(securityMiddleware.RequestTimeout)
	r.Use(securityMiddleware.ValidateContentType)
	r.Use(securityMiddleware.CORSConfig())
	r.Use(limiter.IPRateLimitMiddleware())

	// Recommendation responses are cached until the bid set changes
	appCache := cache.NewCache(15 * time.Minute)

	r.GET("/health", func(c *gin.Context) {
		healthResponse := gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"metrics":   appMetrics.GetStats(),
			"database":  db.GetPoolStats(),
		}
		if redisClient != nil && redisClient.IsEnabled() {
			if err := redisClient.HealthCheck(c.Request.Context()); err != nil {
				healthResponse["redis"] = "unreachable"
			} else {
				healthResponse["redis"] = "ok"
			}
		} else {
			healthResponse["redis"] = "disabled"
		}
		c.JSON(http.StatusOK, healthResponse)
	})

	// Authentication endpoints. The in-memory IP limiter guards the
	// credential endpoints against brute force on top of the global limit.
	authGroup := r.Group("/auth")
	authGroup.Use(securityMiddleware.RateLimitByIP)
	{
		authGroup.POST("/vendor/register", func(c *gin.Context) {
			var req types.RegisterVendorRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				_ = c.Error(errors.NewValidationError("invalid registration payload", err.Error()))
				return
			}
			vendor, err := authService.RegisterVendor(
				securityMiddleware.SanitizeInput(req.CompanyName),
				req.Email, req.Password, req.RegistrationNumber)
			if err != nil {
				_ = c.Error(err)
				return
			}
			appLogger.SecurityLogger("vendor_registered", c.ClientIP(), c.GetHeader("User-Agent"),
				map[string]interface{}{"vendor_id": vendor.ID})
			c.JSON(http.StatusCreated, vendor)
		})

		authGroup.POST("/vendor/login", func(c *gin.Context) {
			var req types.VendorLoginRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				_ = c.Error(errors.NewValidationError("invalid login payload", err.Error()))
				return
			}
			token, vendor, err := authService.LoginVendor(req.Email, req.Password)
			if err != nil {
				appLogger.SecurityLogger("vendor_login_failed", c.ClientIP(), c.GetHeader("User-Agent"),
					map[string]interface{}{"email": req.Email})
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusOK, types.TokenResponse{
				Token: token,
				Role:  auth.RoleVendor,
				Name:  vendor.CompanyName,
				ID:    vendor.ID,
			})
		})

		authGroup.POST("/government/login", func(c *gin.Context) {
			var req types.GovernmentLoginRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				_ = c.Error(errors.NewValidationError("invalid login payload", err.Error()))
				return
			}
			token, account, err := authService.LoginGovernment(req.Username, req.AccessCode)
			if err != nil {
				appLogger.SecurityLogger("government_login_failed", c.ClientIP(), c.GetHeader("User-Agent"),
					map[string]interface{}{"username": req.Username})
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusOK, types.TokenResponse{
				Token: token,
				Role:  auth.RoleGovernment,
				Name:  account.Username,
				ID:    account.ID,
			})
		})
	}

	r.GET("/auth/me", authService.Middleware(), func(c *gin.Context) {
		identity := auth.IdentityFrom(c)
		c.JSON(http.StatusOK, gin.H{
			"id":   identity.AccountID,
			"role": identity.Role,
			"name": identity.Name,
		})
	})

	// Public transparency endpoints, no authentication
	r.GET("/tenders", func(c *gin.Context) {
		tenders, err := repo.ListTenders(c.Query("status"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tenders": tenders, "count": len(tenders)})
	})

	r.GET("/tenders/:id", func(c *gin.Context) {
		tender, err := repo.GetTender(c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		if tender == nil {
			_ = c.Error(errors.NewNotFoundError("tender", c.Param("id")))
			return
		}
		c.JSON(http.StatusOK, tender)
	})

	// Bids become public once the tender stops accepting them
	r.GET("/tenders/:id/bids", func(c *gin.Context) {
		tender, err := repo.GetTender(c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		if tender == nil {
			_ = c.Error(errors.NewNotFoundError("tender", c.Param("id")))
			return
		}
		if tender.Status == database.TenderStatusOpen {
			_ = c.Error(errors.NewConflictError("bids are sealed while the tender is open"))
			return
		}
		bids, err := repo.ListBidsByTender(tender.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"tender_id": tender.ID, "bids": bids, "count": len(bids)})
	})

	r.GET("/tenders/:id/award", func(c *gin.Context) {
		award, err := repo.GetAwardByTender(c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		if award == nil {
			_ = c.Error(errors.NewNotFoundError("award for tender", c.Param("id")))
			return
		}
		c.JSON(http.StatusOK, award)
	})

	// Audit trail verification: returns the tender's ledger entries and
	// whether the hash chain still holds
	r.GET("/tenders/:id/ledger", func(c *gin.Context) {
		verification, err := auditLedger.VerifyTrail(c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, verification)
	})

	// Full transparency view: the tender, its bids with scores (once the
	// tender stops accepting them), the award and the verified audit trail
	r.GET("/tenders/:id/transparency", func(c *gin.Context) {
		tender, err := repo.GetTender(c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		if tender == nil {
			_ = c.Error(errors.NewNotFoundError("tender", c.Param("id")))
			return
		}

		view := gin.H{"tender": tender}
		if tender.Status != database.TenderStatusOpen {
			bids, err := repo.ListBidsByTender(tender.ID)
			if err != nil {
				_ = c.Error(err)
				return
			}
			view["bids"] = bids
		}
		if award, err := repo.GetAwardByTender(tender.ID); err == nil && award != nil {
			view["award"] = award
		}
		verification, err := auditLedger.VerifyTrail(tender.ID)
		if err != nil {
			_ = c.Error(err)
			return
		}
		view["ledger"] = verification
		c.JSON(http.StatusOK, view)
	})

	r.POST("/awards/:id/ratings", limiter.EndpointRateLimitMiddleware("ratings", 10), func(c *gin.Context) {
		var req types.SubmitRatingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(errors.NewValidationError("invalid rating payload", err.Error()))
			return
		}
		if err := securityMiddleware.ValidateComment(req.Comment); err != nil {
			_ = c.Error(errors.NewValidationError(err.Error()))
			return
		}
		rating, err := procurement.SubmitRating(c.Param("id"),
			securityMiddleware.SanitizeInput(req.Comment), c.ClientIP(), req.Rating)
		if err != nil {
			_ = c.Error(err)
			return
		}
		// the rating moved the vendor's reputation, so every tender this
		// vendor bid on evaluates differently now
		if award, err := repo.GetAward(c.Param("id")); err == nil && award != nil {
			if bids, err := repo.ListBidsByVendor(award.VendorID); err == nil {
				for _, b := range bids {
					appCache.InvalidatePath("/gov/tenders/" + b.TenderID + "/recommendations")
				}
			}
		}
		c.JSON(http.StatusCreated, rating)
	})

	r.GET("/ratelimit/status", limiter.HandleRateLimitStatus())

	// Government endpoints
	gov := r.Group("/gov")
	gov.Use(authService.Middleware(), auth.RequireRole(auth.RoleGovernment))
	{
		gov.POST("/tenders", func(c *gin.Context) {
			var req types.CreateTenderRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				_ = c.Error(errors.NewValidationError("invalid tender payload", err.Error()))
				return
			}
			if err := securityMiddleware.ValidateText(req.Description, securityConfig.MaxProposalLength); err != nil {
				_ = c.Error(errors.NewValidationError(err.Error()))
				return
			}
			identity := auth.IdentityFrom(c)
			tender, err := procurement.CreateTender(
				securityMiddleware.SanitizeInput(req.Title),
				securityMiddleware.SanitizeInput(req.Description),
				req.Category, identity.AccountID, req.Budget, req.Deadline)
			if err != nil {
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusCreated, tender)
		})

		gov.POST("/tenders/:id/close", func(c *gin.Context) {
			tender, err := procurement.CloseTender(c.Param("id"))
			if err != nil {
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusOK, tender)
		})

		gov.GET("/tenders/:id/recommendations", appCache.Middleware(appMetrics), func(c *gin.Context) {
			start := time.Now()
			recs, tender, err := procurement.EvaluateTender(c.Request.Context(), c.Param("id"))
			if err != nil {
				_ = c.Error(err)
				return
			}

			anomalies := 0
			for _, rec := range recs {
				if rec.AnomalyFlag {
					anomalies++
				}
			}
			topScore := 0.0
			if len(recs) > 0 {
				topScore = recs[0].AIScore
			}

			appMetrics.IncrementEvaluation()
			appMetrics.RecordBidsScored(len(recs))
			appMetrics.RecordAnomaliesFlagged(anomalies)
			appLogger.EvaluationLogger(tender.ID, len(recs), anomalies, topScore, time.Since(start))

			c.JSON(http.StatusOK, gin.H{
				"tender_id":       tender.ID,
				"tender_status":   tender.Status,
				"recommendations": recs,
				"anomaly_count":   anomalies,
				"evaluated_at":    time.Now().Format(time.RFC3339),
			})
		})

		gov.POST("/tenders/:id/award", func(c *gin.Context) {
			var req types.AwardTenderRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				_ = c.Error(errors.NewValidationError("invalid award payload", err.Error()))
				return
			}
			award, err := procurement.AwardTender(c.Param("id"), req.BidID,
				securityMiddleware.SanitizeInput(req.Justification))
			if err != nil {
				_ = c.Error(err)
				return
			}
			appLogger.SecurityLogger("tender_awarded", c.ClientIP(), c.GetHeader("User-Agent"),
				map[string]interface{}{"tender_id": award.TenderID, "bid_id": award.BidID})
			appCache.InvalidatePath("/gov/tenders/" + award.TenderID + "/recommendations")
			c.JSON(http.StatusCreated, award)
		})

		// Rate limiter administration (government only)
		gov.GET("/ratelimits", limiter.HandleAdminRateLimits())
		gov.GET("/ratelimits/metrics", limiter.HandleAdminRateLimitMetrics())
		gov.POST("/ratelimits/invalidate/vendor/:vendorID", limiter.HandleAdminInvalidateVendor())
		gov.POST("/ratelimits/invalidate/ip/:ip", limiter.HandleAdminInvalidateIP())
	}

	// Vendor endpoints
	vendor := r.Group("/vendor")
	vendor.Use(authService.Middleware(), auth.RequireRole(auth.RoleVendor))
	{
		vendor.POST("/tenders/:id/bids", limiter.BidRateLimitMiddleware(), func(c *gin.Context) {
			var req types.SubmitBidRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				_ = c.Error(errors.NewValidationError("invalid bid payload", err.Error()))
				return
			}
			if err := securityMiddleware.ValidateProposal(req.TechnicalProposal); err != nil {
				_ = c.Error(errors.NewValidationError(err.Error()))
				return
			}
			identity := auth.IdentityFrom(c)
			bid, err := procurement.SubmitBid(c.Param("id"), identity.AccountID,
				req.TechnicalProposal, req.ProposedPrice, req.DeliveryDays)
			if err != nil {
				_ = c.Error(err)
				return
			}
			// a new bid changes the evaluation, drop the cached recommendations
			appCache.InvalidatePath("/gov/tenders/" + bid.TenderID + "/recommendations")
			c.JSON(http.StatusCreated, bid)
		})

		vendor.GET("/bids", func(c *gin.Context) {
			identity := auth.IdentityFrom(c)
			bids, err := repo.ListBidsByVendor(identity.AccountID)
			if err != nil {
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"bids": bids, "count": len(bids)})
		})

		vendor.GET("/awards", func(c *gin.Context) {
			identity := auth.IdentityFrom(c)
			awards, err := repo.ListAwardsByVendor(identity.AccountID)
			if err != nil {
				_ = c.Error(err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"awards": awards, "count": len(awards)})
		})
	}

	// Swagger documentation routes
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Metrics endpoint
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, appMetrics.GetStats())
	})

	// Cache stats endpoint
	r.GET("/cache/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, appCache.Stats())
	})

	// Compression stats endpoint
	r.GET("/compression/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, compressionMiddleware.GetStats())
	})

	// Performance profiling endpoints (development only)
	if os.Getenv("ENABLE_PROFILING") == "true" {
		slog.Info("Enabling performance profiling endpoints")
		r.GET("/debug/pprof/*filepath", gin.WrapF(pprof.Index))
		r.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
		r.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
		r.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
		r.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	}

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if redisClient != nil {
		errors.SafeClose(redisClient, "redis client")
	}
	slog.Info("Server exited")
}

// seedGovernmentAccount creates the configured government login if it
// does not exist yet. The access code is only ever stored hashed.
func seedGovernmentAccount(repo *database.Repository, accessCode string) error {
	username := getEnvOrDefault("GOV_USERNAME", "procurement-office")
	existing, err := repo.GetGovernmentAccountByUsername(username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := auth.HashSecret(accessCode)
	if err != nil {
		return err
	}
	account := database.NewGovernmentAccount(username,
		getEnvOrDefault("GOV_DEPARTMENT", "Public Procurement"), hash)
	if err := repo.CreateGovernmentAccount(account); err != nil {
		return err
	}
	slog.Info("Seeded government account", "username", username)
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
