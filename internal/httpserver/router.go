package httpserver

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mlunin-git/coaching-platform-sub000/internal/handler"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/metrics"
	"github.com/mlunin-git/coaching-platform-sub000/pkg/trace"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Client       *handler.ClientHandler
	Task         *handler.TaskHandler
	Message      *handler.MessageHandler
	Planning     *handler.PlanningHandler
	Notification *handler.NotificationHandler
	Wheel        *handler.WheelHandler
	Realtime     *handler.RealtimeHandler
}

func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger, db *pgxpool.Pool, rdb *goredis.Client) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 请求日志 + trace + 指标
	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)

		c.Next()

		latency := time.Since(start)
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
			latency,
		)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", traceID),
			zap.String("user_agent", c.Request.UserAgent()),
		)
	})

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(500, gin.H{"status": "redis_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/register", h.Auth.Register)
	r.GET("/csrf", h.Auth.GetCSRF)
	r.POST("/login", h.Auth.Login)

	authed := r.Group("/", AuthMiddleware(jwtSecret))

	coach := authed.Group("/", RequireCoach())
	{
		coach.POST("/clients", h.Client.Create)
		coach.GET("/clients", h.Client.List)
		coach.GET("/clients/:id", h.Client.Get)
		coach.PUT("/clients/:id", h.Client.Update)
		coach.DELETE("/clients/:id", h.Client.Delete)

		coach.POST("/tasks", h.Task.Create)
		coach.GET("/tasks", h.Task.List)
		coach.PUT("/tasks/:id", h.Task.Update)
		coach.DELETE("/tasks/:id", h.Task.Delete)
		coach.POST("/tasks/:id/assign", h.Task.Assign)
		coach.POST("/assignments/:id/complete", h.Task.Complete)
		coach.GET("/clients/:id/tasks", h.Task.ListForClient)

		coach.PUT("/clients/:id/wheel", h.Wheel.Record)
		coach.GET("/clients/:id/wheel", h.Wheel.Latest)
	}

	authed.POST("/messages", h.Message.Send)
	authed.GET("/messages/unread", h.Message.Unread)
	authed.GET("/messages/:userID", h.Message.Conversation)
	authed.POST("/messages/read/:userID", h.Message.MarkRead)

	authed.GET("/notifications", h.Notification.List)
	authed.POST("/notifications/:id/read", h.Notification.MarkRead)
	authed.GET("/notifications/unread_count", h.Notification.UnreadCount)

	authed.POST("/planning/groups", h.Planning.CreateGroup)
	authed.GET("/planning/groups", h.Planning.ListGroups)
	authed.GET("/planning/groups/:id", h.Planning.GroupDetail)
	authed.POST("/planning/join/:token", h.Planning.JoinGroup)
	authed.POST("/planning/groups/:id/ideas", h.Planning.SubmitIdea)
	authed.GET("/planning/groups/:id/ideas", h.Planning.ListIdeas)
	authed.POST("/planning/ideas/:id/vote", h.Planning.Vote)
	authed.DELETE("/planning/ideas/:id/vote", h.Planning.Unvote)
	authed.POST("/planning/ideas/:id/promote", h.Planning.Promote)
	authed.GET("/planning/groups/:id/events", h.Planning.ListEvents)

	authed.GET("/stream", h.Realtime.Stream)

	return r
}
