package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/totegamma/concrnt-adz"
	"github.com/totegamma/concrnt-adz/internal/domain"
	"github.com/totegamma/concrnt-adz/internal/interface/rest/middleware"
	"github.com/totegamma/concrnt-adz/internal/interface/rest/presenter"
	"github.com/totegamma/concrnt-adz/internal/usecase"
)

// EventReader replays the audit log.
type EventReader interface {
	Since(ctx context.Context, seq uint64, limit int) ([]adz.Event, error)
}

// Realtime streams committed events filtered by kind.
type Realtime interface {
	Realtime(ctx context.Context, input <-chan []adz.EventKind, output chan<- adz.Event)
}

type Handler struct {
	config     domain.Config
	dispatcher *usecase.Dispatcher
	query      *usecase.QueryUsecase
	events     EventReader
	realtime   Realtime
	logger     *zap.Logger
}

func NewHandler(
	config domain.Config,
	dispatcher *usecase.Dispatcher,
	query *usecase.QueryUsecase,
	events EventReader,
	realtime Realtime,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		config:     config,
		dispatcher: dispatcher,
		query:      query,
		events:     events,
		realtime:   realtime,
		logger:     logger,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/.well-known/adz", h.handleWellKnown)
	e.POST("/commit", h.handleCommit, middleware.IdentifyRequester)
	e.GET("/ads/:id", h.handleGetAd)
	e.GET("/ads/:id/comments/:comment", h.handleGetComment)
	e.GET("/resource/:uri", h.handleResource)
	e.GET("/tags/:tag", h.handleTag)
	e.GET("/events", h.handleEvents)
	e.GET("/state/digest", h.handleDigest)
	e.GET("/realtime", h.handleRealtime)
}

func (h *Handler) handleWellKnown(c echo.Context) error {
	wellknown := adz.WellKnownAdz{
		Version:       "1.0",
		Domain:        h.config.FQDN,
		Layer:         h.config.Layer,
		ModuleID:      h.config.ModuleID,
		EscrowAccount: h.config.EscrowAccount,
		Endpoints: map[string]string{
			"net.adz.commit":   "/commit",
			"net.adz.ad":       "/ads/{id}",
			"net.adz.comment":  "/ads/{id}/comments/{comment}",
			"net.adz.resource": "/resource/{uri}",
			"net.adz.tag":      "/tags/{tag}",
			"net.adz.events":   "/events",
			"net.adz.digest":   "/state/digest",
			"net.adz.realtime": "/realtime",
		},
	}
	return presenter.OK(c, wellknown)
}

func (h *Handler) handleCommit(c echo.Context) error {
	ctx := c.Request().Context()

	caller, ok := middleware.Requester(ctx)
	if !ok {
		return presenter.Unauthorized(c, "missing requester")
	}

	var txn adz.Transaction
	err := c.Bind(&txn)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	receipt, err := h.dispatcher.Apply(ctx, caller, txn)
	if err != nil {
		return presenter.Error(c, err)
	}

	return presenter.OK(c, receipt)
}

func parseID(raw string) (uint32, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}

func (h *Handler) handleGetAd(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := parseID(c.Param("id"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid ad id")
	}

	ad, err := h.query.GetAd(ctx, id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, ad)
}

func (h *Handler) handleGetComment(c echo.Context) error {
	ctx := c.Request().Context()

	adID, err := parseID(c.Param("id"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid ad id")
	}
	commentID, err := parseID(c.Param("comment"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid comment id")
	}

	comment, err := h.query.GetComment(ctx, adID, commentID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, comment)
}

// handleResource resolves adz://<ad>[/<comment>] uris.
func (h *Handler) handleResource(c echo.Context) error {
	ctx := c.Request().Context()

	uriString, err := url.QueryUnescape(c.Param("uri"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid uri")
	}

	adID, commentID, err := adz.ParseAdURI(uriString)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	if commentID == nil {
		ad, err := h.query.GetAd(ctx, adID)
		if err != nil {
			return presenter.Error(c, err)
		}
		return presenter.OK(c, ad)
	}

	comment, err := h.query.GetComment(ctx, adID, *commentID)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, comment)
}

func (h *Handler) handleTag(c echo.Context) error {
	ctx := c.Request().Context()

	tag, err := url.PathUnescape(c.Param("tag"))
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid tag")
	}

	ids, err := h.query.AdsByTag(ctx, tag)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"tag": tag, "ads": ids})
}

func (h *Handler) handleEvents(c echo.Context) error {
	ctx := c.Request().Context()

	if h.events == nil {
		return presenter.NotFound(c, "event log disabled")
	}

	var since uint64
	if s := c.QueryParam("since"); s != "" {
		parsed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid since parameter")
		}
		since = parsed
	}

	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = parsed
	}
	if limit > 1000 {
		limit = 1000
	}

	events, err := h.events.Since(ctx, since, limit)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, events)
}

func (h *Handler) handleDigest(c echo.Context) error {
	ctx := c.Request().Context()

	digest, err := h.query.Digest(ctx)
	if err != nil {
		return presenter.InternalError(c, err)
	}
	return presenter.OK(c, echo.Map{"digest": digest})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Request struct {
	Type  string          `json:"type"`
	Kinds []adz.EventKind `json:"kinds"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	if h.realtime == nil {
		return presenter.NotFound(c, "realtime disabled")
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", zap.Error(err))
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []adz.EventKind)
	output := make(chan adz.Event)

	go h.realtime.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req Request
			err := ws.ReadJSON(&req)
			if err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						h.logger.Debug("websocket closed", zap.Error(wsErr))
					}
				} else {
					h.logger.Error("error reading message", zap.Error(err))
				}
				return
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Kinds:
				case <-ctx.Done():
					return
				}
				h.logger.Debug("socket subscribe", zap.Any("kinds", req.Kinds))
			case "h": // heartbeat
			default:
				h.logger.Info("unknown request type", zap.String("type", req.Type))
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				h.logger.Error("error writing message", zap.Error(err))
				return nil
			}
		}
	}
}
