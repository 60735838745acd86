package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dszqbsm/fraudcrawler/llm"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const sessionCookie = "session_id"

type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string        `json:"session_id"`
	Reply     string        `json:"reply"`
	History   []llm.Message `json:"history"`
	Error     string        `json:"error,omitempty"`
}

type pageData struct {
	SessionID string
	History   []llm.Message
}

// 网页聊天服务，会话保存在内存中
type Server struct {
	echo      *echo.Echo
	assistant *Assistant
	sessions  *Sessions
	logger    *zap.Logger
}

func NewServer(a *Assistant, s *Sessions, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = newRenderer()
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))

	srv := &Server{echo: e, assistant: a, sessions: s, logger: logger}
	e.GET("/", srv.index)
	e.GET("/healthz", srv.healthz)
	e.POST("/api/chat", srv.chat)
	e.POST("/api/clear", srv.clear)
	return srv
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

/*
输入上下文和监听地址，输出错误

上下文取消后在5秒内优雅关闭
*/
func (s *Server) Start(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("chat server listening", zap.String("addr", addr))
		errc <- s.echo.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdown)
	}
}

// 请求体中的ID优先，其次是cookie，都没有时生成新的
func (s *Server) sessionID(c echo.Context, id string) string {
	if id != "" {
		return id
	}
	if ck, err := c.Cookie(sessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	id = uuid.NewString()
	c.SetCookie(&http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true})
	return id
}

func (s *Server) index(c echo.Context) error {
	id := s.sessionID(c, "")
	return c.Render(http.StatusOK, "index", pageData{SessionID: id, History: s.sessions.History(id)})
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ChatResponse{Error: "invalid request body"})
	}
	id := s.sessionID(c, req.SessionID)
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return c.JSON(http.StatusBadRequest, ChatResponse{SessionID: id, Error: "message is empty"})
	}

	history := s.sessions.Append(id, llm.Message{Role: "user", Content: msg})
	reply, err := s.assistant.complete(c.Request().Context(), history)
	if err != nil {
		// 用户消息保留在历史中，错误不写入历史
		return c.JSON(http.StatusOK, ChatResponse{
			SessionID: id,
			Reply:     errorText(err),
			History:   history,
			Error:     err.Error(),
		})
	}
	history = s.sessions.Append(id, llm.Message{Role: "assistant", Content: reply})
	return c.JSON(http.StatusOK, ChatResponse{SessionID: id, Reply: reply, History: history})
}

func (s *Server) clear(c echo.Context) error {
	var req ChatRequest
	_ = c.Bind(&req)
	id := s.sessionID(c, req.SessionID)
	s.sessions.Clear(id)
	return c.JSON(http.StatusOK, ChatResponse{SessionID: id, History: []llm.Message{}})
}
