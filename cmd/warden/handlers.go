package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hearthchat/moderation/automod/behavior"
	"github.com/hearthchat/moderation/automod/engine"
	"github.com/hearthchat/moderation/automod/store"
	"github.com/hearthchat/moderation/models"

	"github.com/labstack/echo/v4"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Message string `json:"msg,omitempty"`
}

// maps engine errors to API errors; everything unrecognized is a 500
func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	name := "InternalError"
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		name = http.StatusText(code)
	case errors.Is(err, engine.ErrInvalidInput):
		code, name = http.StatusBadRequest, "InvalidRequest"
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, behavior.ErrClusterNotFound), errors.Is(err, behavior.ErrRuleNotFound):
		code, name = http.StatusNotFound, "NotFound"
	case errors.Is(err, engine.ErrInvalidTransition):
		code, name = http.StatusConflict, "InvalidTransition"
	}
	if code >= 500 {
		slog.Warn("warden-http-internal-error", "err", err)
	}
	if c.Response().Committed {
		return
	}
	msg := err.Error()
	if he != nil {
		if s, ok := he.Message.(string); ok {
			msg = s
		}
	}
	if err := c.JSON(code, GenericError{Error: name, Message: msg}); err != nil {
		slog.Error("failed to write error response", "err", err)
	}
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	if err := srv.Ready(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, GenericStatus{Status: "error", Daemon: "warden", Message: err.Error()})
	}
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "warden"})
}

type moderateRequest struct {
	ContentID        string     `json:"contentId"`
	Text             string     `json:"text"`
	AuthorID         string     `json:"authorId"`
	Room             string     `json:"room,omitempty"`
	Language         string     `json:"language,omitempty"`
	AccountCreatedAt *time.Time `json:"accountCreatedAt,omitempty"`
	FirstMessage     bool       `json:"firstMessage,omitempty"`
}

func (srv *Server) HandleModerate(c echo.Context) error {
	var req moderateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	mctx := &engine.ModerationContext{
		Room:         req.Room,
		Language:     req.Language,
		FirstMessage: req.FirstMessage,
	}
	if req.AccountCreatedAt != nil {
		mctx.AccountCreatedAt = *req.AccountCreatedAt
	}
	dec, err := srv.engine.ModerateContent(c.Request().Context(), req.ContentID, req.Text, req.AuthorID, mctx)
	if dec != nil && errors.Is(err, engine.ErrPersistence) {
		// the verdict stands even if some records were not written
		srv.logger.Error("moderation records incomplete", "content", req.ContentID, "err", err)
		return c.JSON(http.StatusOK, dec)
	} else if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dec)
}

func (srv *Server) HandleUserStatus(c echo.Context) error {
	status, err := srv.engine.CheckUserModerationStatus(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, status)
}

type shadowBanRequest struct {
	Enabled bool `json:"enabled"`
}

func (srv *Server) HandleShadowBan(c echo.Context) error {
	var req shadowBanRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := srv.engine.SetShadowBan(c.Request().Context(), c.Param("id"), req.Enabled); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type appealRequest struct {
	ActionID    string `json:"actionId"`
	AppellantID string `json:"appellantId"`
	Reason      string `json:"reason"`
}

func (srv *Server) HandleAppeal(c echo.Context) error {
	var req appealRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	res, err := srv.engine.ProcessAppeal(c.Request().Context(), req.ActionID, req.AppellantID, req.Reason)
	if res != nil && err != nil {
		srv.logger.Error("appeal approved but restore incomplete", "action", req.ActionID, "err", err)
	} else if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

type reportRequest struct {
	ReporterID   string `json:"reporterId"`
	TargetUserID string `json:"targetUserId"`
	ContentID    string `json:"contentId,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

type reportResponse struct {
	ID     string `json:"id"`
	Upheld bool   `json:"upheld"`
}

func (srv *Server) HandleReport(c echo.Context) error {
	var req reportRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	rep, err := srv.engine.ReportContent(c.Request().Context(), req.ReporterID, req.TargetUserID, req.ContentID, req.Reason)
	if rep == nil {
		return err
	} else if err != nil {
		srv.logger.Error("report saved but follow-up updates failed", "report", rep.ID, "err", err)
	}
	out := reportResponse{ID: rep.ID}
	if rep.Upheld != nil {
		out.Upheld = *rep.Upheld
	}
	return c.JSON(http.StatusCreated, out)
}

type feedbackRequest struct {
	AnalysisID string            `json:"analysisId"`
	Action     models.ActionKind `json:"action"`
	WasCorrect bool              `json:"wasCorrect"`
}

type feedbackResponse struct {
	RulesUpdated int `json:"rulesUpdated"`
}

func (srv *Server) HandleFeedback(c echo.Context) error {
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.AnalysisID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "analysisId is required")
	}
	n, err := srv.engine.LearnFromFeedback(c.Request().Context(), req.AnalysisID, req.Action, req.WasCorrect)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, feedbackResponse{RulesUpdated: n})
}

type queueItemView struct {
	ID              string               `json:"id"`
	Kind            models.QueueKind     `json:"kind"`
	ContentID       string               `json:"contentId"`
	ContentType     models.TargetType    `json:"contentType"`
	AuthorID        string               `json:"authorId,omitempty"`
	ActionID        string               `json:"actionId,omitempty"`
	AnalysisID      string               `json:"analysisId,omitempty"`
	Priority        models.QueuePriority `json:"priority"`
	Severity        models.Severity      `json:"severity"`
	Reasons         []string             `json:"reasons"`
	Status          models.QueueStatus   `json:"status"`
	AssignedTo      string               `json:"assignedTo,omitempty"`
	AssignedAt      *time.Time           `json:"assignedAt,omitempty"`
	ResolvedBy      string               `json:"resolvedBy,omitempty"`
	ResolvedAt      *time.Time           `json:"resolvedAt,omitempty"`
	Resolution      models.ActionKind    `json:"resolution,omitempty"`
	ResolutionNotes string               `json:"resolutionNotes,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

func viewQueueItem(item *models.ModerationQueueItem) queueItemView {
	return queueItemView{
		ID:              item.ID,
		Kind:            item.Kind,
		ContentID:       item.ContentID,
		ContentType:     item.ContentType,
		AuthorID:        item.AuthorID,
		ActionID:        item.ActionID,
		AnalysisID:      item.AnalysisID,
		Priority:        item.Priority,
		Severity:        item.Severity,
		Reasons:         item.Reasons,
		Status:          item.Status,
		AssignedTo:      item.AssignedTo,
		AssignedAt:      item.AssignedAt,
		ResolvedBy:      item.ResolvedBy,
		ResolvedAt:      item.ResolvedAt,
		Resolution:      item.Resolution,
		ResolutionNotes: item.ResolutionNotes,
		CreatedAt:       item.CreatedAt,
	}
}

func (srv *Server) HandleListQueue(c echo.Context) error {
	filter := store.QueueFilter{
		Status:     models.QueueStatus(c.QueryParam("status")),
		Kind:       models.QueueKind(c.QueryParam("kind")),
		AssignedTo: c.QueryParam("assignedTo"),
		Limit:      50,
	}
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		filter.Limit = n
	}
	items, err := srv.engine.ListQueue(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	out := make([]queueItemView, 0, len(items))
	for i := range items {
		out = append(out, viewQueueItem(&items[i]))
	}
	return c.JSON(http.StatusOK, out)
}

func (srv *Server) HandleGetQueueItem(c echo.Context) error {
	item, err := srv.engine.GetQueueItem(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewQueueItem(item))
}

type assignRequest struct {
	ModeratorID string `json:"moderatorId"`
}

func (srv *Server) HandleAssignQueueItem(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	item, err := srv.engine.AssignQueueItem(c.Request().Context(), c.Param("id"), req.ModeratorID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewQueueItem(item))
}

type resolveRequest struct {
	ModeratorID string            `json:"moderatorId"`
	Resolution  models.ActionKind `json:"resolution"`
	Notes       string            `json:"notes,omitempty"`
}

func (srv *Server) HandleResolveQueueItem(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	item, err := srv.engine.ResolveQueueItem(c.Request().Context(), c.Param("id"), req.ModeratorID, req.Resolution, req.Notes)
	if item != nil && err != nil {
		// the verdict is recorded; enforcement of it is what failed
		srv.logger.Error("queue item resolved but enforcement incomplete", "queueItem", item.ID, "err", err)
	} else if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, viewQueueItem(item))
}

func (srv *Server) HandleListRules(c echo.Context) error {
	return c.JSON(http.StatusOK, srv.layer.Rules.List())
}

type clusterTypeRequest struct {
	Type behavior.ClusterType `json:"type"`
}

func (srv *Server) HandleSetClusterType(c echo.Context) error {
	var req clusterTypeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	switch req.Type {
	case behavior.ClusterSpam, behavior.ClusterPromotional, behavior.ClusterLegitimate, behavior.ClusterUnknown:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown cluster type")
	}
	if err := srv.layer.Clusters.SetType(c.Param("id"), req.Type); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
