package server

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"wechat-gpt-bridge/internal/biz/domain"
)

const maxBodyBytes int64 = 1 << 20 // 1 MiB

// MessageHandler runs the reply pipeline for one inbound message.
type MessageHandler interface {
	Handle(ctx context.Context, msg domain.InboundMessage)
}

// inboundPayload is the XML envelope the WeChat platform pushes to the
// webhook. Only the fields the relay reads are declared.
type inboundPayload struct {
	XMLName      xml.Name `xml:"xml"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	Content      string   `xml:"Content"`
	Event        string   `xml:"Event"`
}

// WebhookServer receives WeChat official-account message pushes.
type WebhookServer struct {
	echo    *echo.Echo
	handler MessageHandler
	addr    string
}

// NewWebhookServer creates the webhook server.
func NewWebhookServer(addr string, handler MessageHandler) *WebhookServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &WebhookServer{echo: e, handler: handler, addr: addr}
	e.GET("/wechat", s.handleVerify)
	e.POST("/wechat", s.handlePush)
	return s
}

// handleVerify answers the platform's liveness/verification echo.
// Signature verification is intentionally not performed.
func (s *WebhookServer) handleVerify(c echo.Context) error {
	return c.String(http.StatusOK, c.QueryParam("echostr"))
}

// handlePush parses one message push and acknowledges immediately. The
// reply pipeline runs as a detached task: the platform's request/response
// cycle never waits on it.
func (s *WebhookServer) handlePush(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}

	var payload inboundPayload
	if err := xml.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid payload: %v", err))
	}
	if payload.FromUserName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing sender")
	}

	msg := parseInbound(payload)
	go s.handler.Handle(context.Background(), msg)

	return c.String(http.StatusOK, "success")
}

// parseInbound maps the platform envelope onto the tagged inbound
// message: exactly one variant per payload.
func parseInbound(payload inboundPayload) domain.InboundMessage {
	createdAt := time.Unix(payload.CreateTime, 0)
	switch payload.MsgType {
	case "text":
		return domain.NewTextMessage(payload.FromUserName, createdAt, payload.Content)
	case "event":
		return domain.NewEventMessage(payload.FromUserName, createdAt, payload.Event)
	default:
		// image, voice, video, location, link
		return domain.NewOtherMessage(payload.FromUserName, createdAt, payload.MsgType)
	}
}

// Start starts the HTTP server (blocking).
func (s *WebhookServer) Start() error {
	fmt.Printf("[Server] Listening on %s\n", s.addr)
	return s.echo.Start(s.addr)
}

// Shutdown stops the HTTP server gracefully.
func (s *WebhookServer) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
