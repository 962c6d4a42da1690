package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tutoria/tutoria-backend/internal/config"
	"github.com/tutoria/tutoria-backend/internal/handler"
	"github.com/tutoria/tutoria-backend/internal/middleware"
	"github.com/tutoria/tutoria-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Student   *handler.StudentHandler
	Group     *handler.GroupHandler
	Session   *handler.SessionHandler
	Credit    *handler.CreditHandler
	Setting   *handler.SettingHandler
	Dashboard *handler.DashboardHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for mutating routes (120 requests per minute per IP).
	writeLimiter := middleware.NewRateLimiter(120, time.Minute)
	limited := writeLimiter.Middleware()

	api := router.Group("/api/v1")
	{
		// ─── Students ──────────────────────────────────────────────────
		students := api.Group("/students")
		{
			students.GET("", handlers.Student.ListStudents)
			students.POST("", limited, handlers.Student.CreateStudent)
			students.GET("/:id", handlers.Student.GetStudent)
			students.PUT("/:id", limited, handlers.Student.UpdateStudent)
			students.POST("/:id/balance", limited, handlers.Student.AddSessionBalance)
			students.GET("/:id/credits", handlers.Credit.ListStudentCredits)
		}

		// ─── Groups ────────────────────────────────────────────────────
		groups := api.Group("/groups")
		{
			groups.GET("", handlers.Group.ListGroups)
			groups.POST("", limited, handlers.Group.CreateGroup)
			groups.GET("/:id", handlers.Group.GetGroup)
			groups.GET("/:id/members", handlers.Group.ListMembers)
			groups.POST("/:id/members", limited, handlers.Group.AddMember)
			groups.DELETE("/:id/members/:student_id", limited, handlers.Group.RemoveMember)
		}

		// ─── Sessions ──────────────────────────────────────────────────
		sessions := api.Group("/sessions")
		{
			sessions.GET("", handlers.Session.ListSessions)
			sessions.POST("", limited, handlers.Session.ScheduleSessions)
			sessions.GET("/:id", handlers.Session.GetSession)
			sessions.DELETE("/:id", limited, handlers.Session.DeleteSession)
			sessions.POST("/:id/present", limited, handlers.Session.MarkPresent)
			sessions.POST("/:id/absent", limited, handlers.Session.MarkAbsent)
			sessions.POST("/:id/cancel", limited, handlers.Session.CancelSession)
			sessions.POST("/:id/attendance", limited, handlers.Session.MarkAttendance)
		}

		// ─── Agenda ────────────────────────────────────────────────────
		api.GET("/agenda", handlers.Session.GetAgenda)

		// ─── Makeup credits ────────────────────────────────────────────
		credits := api.Group("/credits")
		{
			credits.POST("", limited, handlers.Credit.GrantCredit)
			credits.GET("/:id", handlers.Credit.GetCredit)
			credits.POST("/:id/redeem", limited, handlers.Credit.RedeemCredit)
		}

		// ─── App Settings ──────────────────────────────────────────────
		settings := api.Group("/settings")
		{
			settings.GET("", handlers.Setting.GetAllSettings)
			settings.PUT("", limited, handlers.Setting.UpdateSettings)
		}

		// ─── Dashboard ─────────────────────────────────────────────────
		api.GET("/dashboard", handlers.Dashboard.GetDashboardData)

		// ─── System Monitoring ─────────────────────────────────────────
		api.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	return router
}
