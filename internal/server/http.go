package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/magefree/arena-server-go/internal/catalog"
	"github.com/magefree/arena-server-go/internal/game/engine"
	"github.com/magefree/arena-server-go/internal/game/model"
	"github.com/magefree/arena-server-go/internal/game/replay"
	"github.com/magefree/arena-server-go/internal/storage"
)

// Engine is the game engine surface exposed over HTTP.
type Engine interface {
	CreateGame(ctx context.Context, req engine.CreateRequest) (*model.GameInstance, error)
	Game(ctx context.Context, id string) (*model.GameInstance, error)
	Actions(id, userID string) ([]*model.Action, error)
	Respond(ctx context.Context, gameID, userID, actionID string, params json.RawMessage) error
}

// GameTypes lists the game types a client may start.
type GameTypes interface {
	GameTypeIDs() []string
}

// Replays resolves recorded game histories.
type Replays interface {
	Replay(id string) (*replay.Replay, error)
}

type respondRequest struct {
	UserID string          `json:"userId" binding:"required"`
	Params json.RawMessage `json:"params"`
}

// NewRouter builds the HTTP API. ws, when not nil, is mounted on wsPath.
func NewRouter(eng Engine, types GameTypes, ws http.Handler, wsPath string, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(LoggingMiddleware(logger), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	if ws != nil {
		r.GET(wsPath, gin.WrapH(ws))
	}

	api := r.Group("/api")
	api.GET("/game-types", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"gameTypes": types.GameTypeIDs()})
	})

	api.POST("/games", func(c *gin.Context) {
		var req engine.CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		inst, err := eng.CreateGame(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, inst)
	})

	api.GET("/games/:id", func(c *gin.Context) {
		inst, err := eng.Game(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, inst)
	})

	api.GET("/games/:id/actions", func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
			return
		}
		actions, err := eng.Actions(c.Param("id"), userID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		if actions == nil {
			actions = []*model.Action{}
		}
		c.JSON(http.StatusOK, gin.H{"actions": actions})
	})

	api.POST("/games/:id/actions/:actionId", func(c *gin.Context) {
		var req respondRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := eng.Respond(c.Request.Context(), c.Param("id"), req.UserID, c.Param("actionId"), req.Params); err != nil {
			writeError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	return r
}

// MountReplays serves recorded histories: the snapshot count, and the
// snapshot at a step.
func MountReplays(r *gin.Engine, replays Replays, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r.GET("/api/games/:id/replay", func(c *gin.Context) {
		rp, err := replays.Replay(c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"gameId": rp.GameID, "states": rp.Size()})
	})
	r.GET("/api/games/:id/replay/:step", func(c *gin.Context) {
		step, err := strconv.Atoi(c.Param("step"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "step must be an integer"})
			return
		}
		rp, err := replays.Replay(c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		inst, err := rp.At(step)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, inst)
	})
}

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest),
		errors.Is(err, engine.ErrResponseKind),
		errors.Is(err, catalog.ErrGameTypeNotFound),
		errors.Is(err, catalog.ErrCardNotFound):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrNotYourAction):
		return http.StatusForbidden
	case errors.Is(err, engine.ErrGameNotFound),
		errors.Is(err, engine.ErrActionNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, replay.ErrNoReplay):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrGameEnded),
		errors.Is(err, engine.ErrNotDecidable):
		return http.StatusConflict
	case errors.Is(err, engine.ErrRejected):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// LoggingMiddleware logs every request with zap.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
