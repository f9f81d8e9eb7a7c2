package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-alert-board/internal/auth"
	"github.com/mr1hm/go-alert-board/internal/comments"
	"github.com/mr1hm/go-alert-board/internal/feed"
	"github.com/mr1hm/go-alert-board/internal/geo"
	internalgrpc "github.com/mr1hm/go-alert-board/internal/grpc"
	"github.com/mr1hm/go-alert-board/internal/ledger"
	"github.com/mr1hm/go-alert-board/internal/location"
	"github.com/mr1hm/go-alert-board/internal/models"
)

// LocationStore persists a user's last known location.
type LocationStore interface {
	UpdateUserLocation(ctx context.Context, userID string, c models.Coordinate) error
}

type Services struct {
	Auth        *auth.Provider
	Feed        *feed.Manager
	Ledger      *ledger.Ledger
	Comments    *comments.Thread
	Sessions    *location.Sessions
	Locations   LocationStore
	Broadcaster *internalgrpc.Broadcaster
}

type Handler struct {
	auth        *auth.Provider
	feed        *feed.Manager
	ledger      *ledger.Ledger
	thread      *comments.Thread
	sessions    *location.Sessions
	locations   LocationStore
	broadcaster *internalgrpc.Broadcaster
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:        s.Auth,
		feed:        s.Feed,
		ledger:      s.Ledger,
		thread:      s.Comments,
		sessions:    s.Sessions,
		locations:   s.Locations,
		broadcaster: s.Broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.POST("/api/auth/signup", h.signUp)
	r.POST("/api/auth/login", h.login)

	public := r.Group("/api", h.optionalAuth())
	public.GET("/alerts", h.listAlerts)
	public.GET("/alerts.geojson", h.listAlertsGeoJSON)
	public.GET("/alerts/:id", h.getAlert)
	public.GET("/alerts/:id/comments", h.listComments)
	public.GET("/events", h.events)

	private := r.Group("/api", h.requireAuth())
	private.POST("/alerts", h.postAlert)
	private.POST("/alerts/:id/votes", h.castVote)
	private.POST("/alerts/:id/comments", h.postComment)
	private.PUT("/session/location", h.pushLocation)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type signUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: name, email and password are required", models.ErrInvalidInput))
		return
	}

	user, err := h.auth.SignUp(c.Request.Context(), auth.SignUpRequest{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: email and password are required", models.ErrInvalidInput))
		return
	}

	sess, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *Handler) listAlerts(c *gin.Context) {
	alerts, err := h.refresh(c)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (h *Handler) listAlertsGeoJSON(c *gin.Context) {
	alerts, err := h.refresh(c)
	if err != nil {
		respondError(c, err)
		return
	}

	fc := toGeoJSON(alerts)
	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, fc)
}

func (h *Handler) refresh(c *gin.Context) ([]feed.DisplayAlert, error) {
	viewer, err := h.viewer(c)
	if err != nil {
		return nil, err
	}
	return h.feed.Refresh(c.Request.Context(), viewer)
}

// viewer picks the coordinate a feed is filtered around. all=true disables
// filtering. Otherwise the caller's session location wins, then lat/lng query
// parameters. With neither available the feed is unfiltered.
func (h *Handler) viewer(c *gin.Context) (*models.Coordinate, error) {
	if all, _ := strconv.ParseBool(c.Query("all")); all {
		return nil, nil
	}

	state := &location.State{}
	if uid := c.GetString(ctxUserID); uid != "" {
		state = h.sessions.For(uid)
	}

	var locator location.Locator
	lat, lng := c.Query("lat"), c.Query("lng")
	if lat != "" || lng != "" {
		locator = location.LocatorFunc(func(ctx context.Context) (models.Coordinate, error) {
			return parseCoordinate(lat, lng)
		})
	}

	coord, err := location.Resolve(c.Request.Context(), state, locator)
	if err != nil {
		if locator == nil {
			return nil, nil
		}
		return nil, err
	}
	return &coord, nil
}

func (h *Handler) getAlert(c *gin.Context) {
	alert, err := h.feed.Detail(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

type postAlertRequest struct {
	Message  string             `json:"message"`
	Location *models.Coordinate `json:"location"`
}

// postAlert tags the alert with the author's current location: the session
// location when the bridge pushed one, otherwise the one in the request.
func (h *Handler) postAlert(c *gin.Context) {
	var req postAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: malformed request body", models.ErrInvalidInput))
		return
	}

	userID := c.GetString(ctxUserID)
	var locator location.Locator
	if req.Location != nil {
		supplied := *req.Location
		locator = location.LocatorFunc(func(ctx context.Context) (models.Coordinate, error) {
			return supplied, nil
		})
	}

	coord, err := location.Resolve(c.Request.Context(), h.sessions.For(userID), locator)
	if err != nil {
		respondError(c, err)
		return
	}

	alert, err := h.feed.Post(c.Request.Context(), userID, req.Message, &coord)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.feed.Display(alert))
}

type voteRequest struct {
	Kind string `json:"kind"`
}

func (h *Handler) castVote(c *gin.Context) {
	var req voteRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, fmt.Errorf("%w: malformed request body", models.ErrInvalidInput))
			return
		}
	}
	if req.Kind == "" {
		req.Kind = c.Query("kind")
	}

	kind, ok := models.ParseVoteKind(req.Kind)
	if !ok {
		respondError(c, fmt.Errorf("%w: vote kind must be verify or discard", models.ErrInvalidInput))
		return
	}

	alert, err := h.ledger.CastVote(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.feed.Display(alert))
}

func (h *Handler) listComments(c *gin.Context) {
	list, err := h.thread.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": list})
}

type commentRequest struct {
	Text string `json:"text"`
}

func (h *Handler) postComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: malformed request body", models.ErrInvalidInput))
		return
	}

	comment, err := h.thread.PostComment(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// pushLocation is the bridge side channel: it overwrites the session's
// cached location and records it as the user's last known location.
func (h *Handler) pushLocation(c *gin.Context) {
	var coord models.Coordinate
	if err := c.ShouldBindJSON(&coord); err != nil {
		respondError(c, fmt.Errorf("%w: malformed coordinate", models.ErrInvalidInput))
		return
	}
	if !geo.Valid(coord) {
		respondError(c, fmt.Errorf("%w: coordinate out of range", models.ErrInvalidInput))
		return
	}

	userID := c.GetString(ctxUserID)
	if err := h.locations.UpdateUserLocation(c.Request.Context(), userID, coord); err != nil {
		if !errors.Is(err, models.ErrUnknownUser) {
			err = fmt.Errorf("%w: %w", models.ErrStoreFailure, err)
		}
		respondError(c, err)
		return
	}
	h.sessions.For(userID).SetLocation(coord)

	c.JSON(http.StatusOK, gin.H{"location": coord})
}

func parseCoordinate(lat, lng string) (models.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid latitude %q", lat)
	}
	ln, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("invalid longitude %q", lng)
	}
	return models.Coordinate{Lat: la, Lng: ln}, nil
}
