package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/julien-nc/integration-suitecrm/suitecrm"
)

// userHeader carries the host-authenticated user id; request routing and
// session handling belong to the hosting application.
const userHeader = "X-User"

// Server is the echo front for the integration endpoints.
type Server struct {
	svc  *Service
	echo *echo.Echo
	addr string
}

func New(svc *Service, addr string) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		svc:  svc,
		echo: e,
		addr: addr,
	}

	registerHandlers(e, srv)

	return srv
}

func registerHandlers(router *echo.Echo, srv *Server) {
	router.POST("/oauth-connect", srv.OauthConnect)
	router.PUT("/config", srv.SetConfig)
	router.PUT("/admin-config", srv.SetAdminConfig)
	router.GET("/reminders", srv.GetReminders)
	router.GET("/notifications", srv.GetNotifications)
	router.GET("/search", srv.Search)
	router.GET("/url", srv.GetInstanceURL)
	router.GET("/avatar", srv.GetAvatar)
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		_ = s.echo.Shutdown(context.Background())
	}()

	err := s.echo.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

type connectForm struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

func (s *Server) OauthConnect(c echo.Context) error {
	userID := c.Request().Header.Get(userHeader)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing user"})
	}

	var form connectForm
	if err := c.Bind(&form); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	userName, err := s.svc.Connect(c.Request().Context(), userID, form.Login, form.Password)
	if err != nil {
		if suitecrm.IsAuthError(err) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid login/password"})
		}

		return apiErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"user_name": userName})
}

func (s *Server) SetConfig(c echo.Context) error {
	userID := c.Request().Header.Get(userHeader)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing user"})
	}

	var values map[string]string
	if err := c.Bind(&values); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	disconnected, err := s.svc.SetUserConfig(c.Request().Context(), userID, values)
	if err != nil {
		return apiErrorResponse(c, err)
	}

	if disconnected {
		return c.JSON(http.StatusOK, map[string]string{"user_name": ""})
	}

	return c.JSON(http.StatusOK, map[string]string{})
}

func (s *Server) SetAdminConfig(c echo.Context) error {
	var values map[string]string
	if err := c.Bind(&values); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if err := s.svc.SetAdminConfig(c.Request().Context(), values); err != nil {
		return apiErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, 1)
}

func (s *Server) GetReminders(c echo.Context) error {
	userID := c.Request().Header.Get(userHeader)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing user"})
	}

	q := suitecrm.ReminderQuery{}

	if since, ok := queryInt64(c, "eventSinceTimestamp"); ok {
		q.EventSince = &since
	}

	if limit, ok := queryInt64(c, "limit"); ok {
		q.Limit = int(limit)
	}

	reminders, err := s.svc.Reminders(c.Request().Context(), userID, q)
	if err != nil {
		return apiErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, reminders)
}

func (s *Server) GetNotifications(c echo.Context) error {
	userID := c.Request().Header.Get(userHeader)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing user"})
	}

	var since *int64

	if val, ok := queryInt64(c, "since"); ok {
		since = &val
	}

	limit := 0
	if val, ok := queryInt64(c, "limit"); ok {
		limit = int(val)
	}

	items, err := s.svc.Notifications(c.Request().Context(), userID, since, limit)
	if err != nil {
		return apiErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, items)
}

func (s *Server) Search(c echo.Context) error {
	userID := c.Request().Header.Get(userHeader)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing user"})
	}

	enabled, err := s.svc.SearchEnabled(c.Request().Context(), userID)
	if err != nil {
		return apiErrorResponse(c, err)
	}

	if !enabled {
		return c.JSON(http.StatusOK, []suitecrm.SearchHit{})
	}

	offset := 0
	if val, ok := queryInt64(c, "offset"); ok {
		offset = int(val)
	}

	limit := 5
	if val, ok := queryInt64(c, "limit"); ok {
		limit = int(val)
	}

	hits, err := s.svc.Search(c.Request().Context(), userID, c.QueryParam("term"), offset, limit)
	if err != nil {
		return apiErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, hits)
}

func (s *Server) GetInstanceURL(c echo.Context) error {
	url, err := s.svc.InstanceURL(c.Request().Context())
	if err != nil {
		return apiErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, url)
}

func (s *Server) GetAvatar(c echo.Context) error {
	userID := c.Request().Header.Get(userHeader)
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing user"})
	}

	avatar, err := s.svc.Avatar(c.Request().Context(), userID, c.QueryParam("suiteUserId"))
	if err != nil {
		return apiErrorResponse(c, err)
	}

	c.Response().Header().Set("Cache-Control", "max-age=86400")

	return c.Blob(http.StatusOK, http.DetectContentType(avatar), avatar)
}

func queryInt64(c echo.Context, name string) (int64, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, false
	}

	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}

	return val, true
}

// apiErrorResponse maps APIError kinds onto HTTP statuses.
func apiErrorResponse(c echo.Context, err error) error {
	status := http.StatusBadGateway

	switch suitecrm.ErrorKindOf(err) {
	case suitecrm.ErrAuth:
		status = http.StatusUnauthorized
	case suitecrm.ErrConfig:
		status = http.StatusBadRequest
	}

	return c.JSON(status, map[string]string{"error": err.Error()})
}
