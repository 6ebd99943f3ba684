package main

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/aimeeyu8/Tastebuddy/chat"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	groupParam       = "group"
	maxMessageLength = 2000
	statusMessage    = "TasteBuddy backend running"
)

type Server struct {
	svc      *chat.Service
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewServer(svc *chat.Service, hub *Hub, logger *slog.Logger) *Server {
	svc.OnMessage(hub.Broadcast)
	return &Server{
		svc: svc,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Handler returns the routes wrapped in a permissive CORS policy for the
// browser frontend.
func (s *Server) Handler() http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})(s.Router())
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": statusMessage})
	})

	r.POST("/join", func(ctx *gin.Context) {
		var req JoinRequest
		if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		s.svc.Join(group(ctx), req.Name)
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/chat", func(ctx *gin.Context) {
		var req ChatRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := req.Validate(); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		reply, err := s.svc.HandleMessage(ctx.Request.Context(), group(ctx), req.ToInput())
		if err != nil {
			if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrMissingUser) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			s.logger.Error("chat failed", "group", group(ctx), "user_id", req.UserID, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		ctx.JSON(http.StatusOK, reply)
	})

	r.POST("/reset_memory", func(ctx *gin.Context) {
		if err := s.svc.Reset(ctx.Request.Context(), group(ctx)); err != nil {
			s.logger.Error("reset failed", "group", group(ctx), "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		ctx.JSON(http.StatusOK, gin.H{"status": "memory reset"})
	})

	r.GET("/history", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, s.svc.History(group(ctx)))
	})

	r.GET("/ws", func(ctx *gin.Context) {
		conn, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			s.logger.Warn("websocket upgrade failed", "error", err)
			return
		}

		g := group(ctx)
		s.svc.Follow(g, NewClient(s.hub, conn, g).Start)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func group(ctx *gin.Context) string {
	return ctx.DefaultQuery(groupParam, chat.DefaultGroup)
}
