package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	bunrepo "github.com/goliatone/go-notification-feed/internal/storage/bun"
	"github.com/goliatone/go-notification-feed/pkg/domain"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/backend"
	"github.com/goliatone/go-notification-feed/pkg/interfaces/channel"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type serverConfig struct {
	Addr  string
	DSN   string
	Token string
}

func loadConfig() serverConfig {
	godotenv.Load()
	cfg := serverConfig{
		Addr:  envOr("FEEDSERVER_ADDR", ":8085"),
		DSN:   envOr("FEEDSERVER_DSN", "file:feedserver.db?cache=shared"),
		Token: envOr("FEEDSERVER_TOKEN", "dev-token"),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := loadConfig()

	db, err := openDatabase(cfg.DSN)
	if err != nil {
		logger.WithError(err).Fatal("database open failed")
	}
	defer db.Close()

	repo := bunrepo.NewNotificationRepository(db)

	wsHub := newHub(logger)
	go wsHub.run()
	defer wsHub.close()

	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api", bearerAuth(cfg.Token))
	api.GET("/notifications", listNotifications(repo))
	api.POST("/notifications", createNotification(repo, wsHub))
	api.POST("/notifications/:source/:id/read", markNotificationRead(repo))

	router.GET("/ws", func(c *gin.Context) {
		if !credentialOK(c, cfg.Token) {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		wsHub.serve(c.Writer, c.Request)
	})

	logger.WithField("addr", cfg.Addr).Info("feedserver listening")
	if err := router.Run(cfg.Addr); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := db.NewCreateTable().
		Model((*bunrepo.FeedRecord)(nil)).
		IfNotExists().
		Exec(context.Background()); err != nil {
		return nil, err
	}
	return db, nil
}

func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !credentialOK(c, token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func credentialOK(c *gin.Context, token string) bool {
	header := c.GetHeader("Authorization")
	if strings.TrimPrefix(header, "Bearer ") == token && header != "" {
		return true
	}
	return c.Query("token") == token
}

func listNotifications(repo *bunrepo.NotificationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := domain.Source(c.Query("source"))
		if !source.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
			return
		}
		page := queryInt(c, "page", 1)
		size := queryInt(c, "size", 20)

		records, hasMore, err := repo.ListBySource(c.Request.Context(), string(source), c.Query("audience"), page, size)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		items := make([]domain.Notification, len(records))
		for i, rec := range records {
			items[i] = rec.Notification()
		}
		c.JSON(http.StatusOK, backend.ListPage{Items: items, HasMore: hasMore})
	}
}

type createRequest struct {
	Source   string         `json:"source" binding:"required"`
	Audience string         `json:"audience"`
	Type     string         `json:"type"`
	Message  string         `json:"message" binding:"required"`
	Target   domain.JSONMap `json:"target"`
}

func createNotification(repo *bunrepo.NotificationRepository, wsHub *hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		source := domain.Source(req.Source)
		if !source.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
			return
		}

		record := &bunrepo.FeedRecord{
			Source:    string(source),
			Audience:  req.Audience,
			Type:      req.Type,
			Message:   req.Message,
			Target:    req.Target,
			CreatedAt: time.Now().UTC(),
		}
		if err := repo.Create(c.Request.Context(), record); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		wsHub.push(channel.Message{
			Source:         source,
			NotificationID: record.Seq,
			Type:           record.Type,
			Message:        record.Message,
			Target:         record.Target,
			CreatedAt:      record.CreatedAt,
		})
		c.JSON(http.StatusCreated, record.Notification())
	}
}

func markNotificationRead(repo *bunrepo.NotificationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		source := domain.Source(c.Param("source"))
		if !source.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown source"})
			return
		}
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
			return
		}
		if err := repo.MarkRead(c.Request.Context(), string(source), id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
