package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"github.com/veltamail/veltamail-backend/internal/auth"
	"github.com/veltamail/veltamail-backend/internal/models"
	"github.com/veltamail/veltamail-backend/internal/websocket"
)

// WSHandlerTestSuite is the test suite for WSHandler
type WSHandlerTestSuite struct {
	suite.Suite
	echo     *echo.Echo
	handler  *WSHandler
	hub      *websocket.Hub
	sessions *auth.SessionManager
	cancel   context.CancelFunc
}

// SetupTest runs before each test
func (s *WSHandlerTestSuite) SetupTest() {
	s.echo = echo.New()

	sessions, err := auth.NewSessionManager(testSessionSecret, "veltamail-test", time.Hour)
	s.Require().NoError(err)
	s.sessions = sessions

	s.hub = websocket.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.hub.Run(ctx)

	s.handler = NewWSHandler(s.hub, sessions, websocket.DefaultUpgrader(), nil)
	s.echo.GET("/ws", s.handler.Connect)
}

// TearDownTest runs after each test
func (s *WSHandlerTestSuite) TearDownTest() {
	s.cancel()
}

// TestWSHandlerTestSuite runs the test suite
func TestWSHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(WSHandlerTestSuite))
}

// sessionToken mints a session credential for the given mailbox address
func (s *WSHandlerTestSuite) sessionToken(address string) string {
	token, _, err := s.sessions.Issue(&models.Mailbox{
		ID:          1,
		FullAddress: address,
		IsActive:    true,
	})
	s.Require().NoError(err)
	return token
}

// dial opens a WebSocket connection against a test server
func (s *WSHandlerTestSuite) dial(srv *httptest.Server, query string) *gorilla.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

// TestConnect_MissingToken tests connecting without a session token
func (s *WSHandlerTestSuite) TestConnect_MissingToken() {
	// Arrange
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	// Act
	err := s.handler.Connect(c)

	// Assert
	var httpErr *echo.HTTPError
	s.ErrorAs(err, &httpErr)
	s.Equal(http.StatusUnauthorized, httpErr.Code)
}

// TestConnect_InvalidToken tests connecting with a garbage session token
func (s *WSHandlerTestSuite) TestConnect_InvalidToken() {
	// Arrange
	req := httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	// Act
	err := s.handler.Connect(c)

	// Assert
	var httpErr *echo.HTTPError
	s.ErrorAs(err, &httpErr)
	s.Equal(http.StatusUnauthorized, httpErr.Code)
}

// TestConnect_BearerHeader tests that the Authorization header is accepted
func (s *WSHandlerTestSuite) TestConnect_BearerHeader() {
	// Arrange
	srv := httptest.NewServer(s.echo)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Authorization": []string{"Bearer " + s.sessionToken("user@example.com")}}

	// Act
	conn, _, err := gorilla.DefaultDialer.Dial(url, header)

	// Assert
	s.Require().NoError(err)
	conn.Close()
}

// TestConnect_RegisterAndNotify tests the full register and notify flow
func (s *WSHandlerTestSuite) TestConnect_RegisterAndNotify() {
	// Arrange
	srv := httptest.NewServer(s.echo)
	defer srv.Close()

	conn := s.dial(srv, "?token="+s.sessionToken("user@example.com"))
	defer conn.Close()

	// Act: register for the session's mailbox
	err := conn.WriteJSON(websocket.WSMessage{
		Type:    websocket.MessageTypeRegister,
		Mailbox: "user@example.com",
	})
	s.Require().NoError(err)

	var confirmation websocket.WSMessage
	s.Require().NoError(conn.ReadJSON(&confirmation))

	// Assert: registration confirmed
	s.Equal(websocket.MessageTypeRegistered, confirmation.Type)
	s.Equal("user@example.com", confirmation.Mailbox)

	// Act: push a stored message through the hub
	s.hub.NotifyNewEmail("user@example.com", &models.Message{
		ID:          42,
		MailboxID:   1,
		SenderEmail: "sender@external.com",
		Subject:     "Test Subject",
		ReceivedAt:  time.Now(),
	})

	var notification websocket.WSMessage
	s.Require().NoError(conn.ReadJSON(&notification))

	// Assert: notification delivered to the registered connection
	s.Equal(websocket.MessageTypeNewEmail, notification.Type)
	s.Equal("user@example.com", notification.Mailbox)
}

// TestConnect_RegisterDeniedForOtherMailbox tests registering outside the session's identity
func (s *WSHandlerTestSuite) TestConnect_RegisterDeniedForOtherMailbox() {
	// Arrange
	srv := httptest.NewServer(s.echo)
	defer srv.Close()

	conn := s.dial(srv, "?token="+s.sessionToken("user@example.com"))
	defer conn.Close()

	// Act
	err := conn.WriteJSON(websocket.WSMessage{
		Type:    websocket.MessageTypeRegister,
		Mailbox: "victim@example.com",
	})
	s.Require().NoError(err)

	var reply websocket.WSMessage
	s.Require().NoError(conn.ReadJSON(&reply))

	// Assert
	s.Equal(websocket.MessageTypeError, reply.Type)
	s.Equal(0, s.hub.Subscribers("victim@example.com"))
}
