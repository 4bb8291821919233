package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"food-dispatch/internal/assignment-service/core/domain/model"
	websocketdto "food-dispatch/internal/assignment-service/core/domain/websocket_dto"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/mylogger"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "ws-secret"

type call struct {
	assignmentID, driverID string
	decision               model.Decision
}

type fakeResolver struct {
	mu     sync.Mutex
	calls  []call
	result model.ResponseResult
	err    error
}

func (f *fakeResolver) HandleResponse(context.Context, string, string, model.Decision) (model.ResponseResult, error) {
	return f.result, f.err
}

func (f *fakeResolver) HandleStatusUpdate(_ context.Context, assignmentID, driverID string, d model.Decision) (model.ResponseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{assignmentID, driverID, d})
	return f.result, f.err
}

func token(t *testing.T, driverID string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"driver_id": driverID,
		"role":      "DRIVER",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func startServer(t *testing.T, d *Dispatcher) string {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/ws/drivers/{driver_id}", d.WsHandler())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, base, driverID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(base+"/ws/drivers/"+driverID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()
	e, err := websocketdto.NewEvent(typ, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(e))
}

func readEvent(t *testing.T, conn *websocket.Conn) websocketdto.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e websocketdto.Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}

func TestSendToUnknownDriver(t *testing.T) {
	d := NewDispatcher(secret, &fakeResolver{}, mylogger.Nop())
	err := d.SendToDriver("nobody", websocketdto.Event{Type: websocketdto.TypeOrderOffer})
	assert.ErrorIs(t, err, myerrors.ErrDriverNotConnected)
}

func TestAuthenticatedDriverReceivesOffers(t *testing.T) {
	d := NewDispatcher(secret, &fakeResolver{}, mylogger.Nop())
	base := startServer(t, d)

	conn := dial(t, base, "d-1")
	sendEvent(t, conn, websocketdto.TypeAuth, websocketdto.Auth{Token: "Bearer " + token(t, "d-1")})
	require.Eventually(t, func() bool { return d.Connected("d-1") }, 2*time.Second, 10*time.Millisecond)

	offer, err := websocketdto.NewEvent(websocketdto.TypeOrderOffer, map[string]string{"assignmentId": "a-1"})
	require.NoError(t, err)
	require.NoError(t, d.SendToDriver("d-1", offer))

	got := readEvent(t, conn)
	assert.Equal(t, websocketdto.TypeOrderOffer, got.Type)
	assert.JSONEq(t, `{"assignmentId":"a-1"}`, string(got.Data))
}

func TestAuthWithOtherDriversTokenIsRefused(t *testing.T) {
	d := NewDispatcher(secret, &fakeResolver{}, mylogger.Nop())
	base := startServer(t, d)

	conn := dial(t, base, "d-1")
	sendEvent(t, conn, websocketdto.TypeAuth, websocketdto.Auth{Token: token(t, "d-2")})

	got := readEvent(t, conn)
	assert.Equal(t, websocketdto.TypeError, got.Type)
	assert.False(t, d.Connected("d-1"))
}

func TestFirstFrameMustBeAuth(t *testing.T) {
	d := NewDispatcher(secret, &fakeResolver{}, mylogger.Nop())
	base := startServer(t, d)

	conn := dial(t, base, "d-1")
	sendEvent(t, conn, websocketdto.TypeOfferResponse, websocketdto.OfferResponse{AssignmentID: "a-1", Decision: "ACCEPTED"})

	got := readEvent(t, conn)
	assert.Equal(t, websocketdto.TypeError, got.Type)
	var msg websocketdto.Error
	require.NoError(t, json.Unmarshal(got.Data, &msg))
	assert.Contains(t, msg.Message, "auth")
}

func TestOfferResponseIsResolved(t *testing.T) {
	res := &fakeResolver{result: model.ResultCommitted}
	d := NewDispatcher(secret, res, mylogger.Nop())
	base := startServer(t, d)

	conn := dial(t, base, "d-1")
	sendEvent(t, conn, websocketdto.TypeAuth, websocketdto.Auth{Token: token(t, "d-1")})
	require.Eventually(t, func() bool { return d.Connected("d-1") }, 2*time.Second, 10*time.Millisecond)

	sendEvent(t, conn, websocketdto.TypeOfferResponse, websocketdto.OfferResponse{AssignmentID: "a-1", Decision: "accepted"})

	got := readEvent(t, conn)
	require.Equal(t, websocketdto.TypeOfferResult, got.Type)
	var result websocketdto.OfferResult
	require.NoError(t, json.Unmarshal(got.Data, &result))
	assert.Equal(t, "a-1", result.AssignmentID)
	assert.Equal(t, "COMMITTED", result.Result)

	res.mu.Lock()
	defer res.mu.Unlock()
	require.Len(t, res.calls, 1)
	assert.Equal(t, call{"a-1", "d-1", model.DecisionAccepted}, res.calls[0])
}

func TestReconnectReplacesOldConnection(t *testing.T) {
	d := NewDispatcher(secret, &fakeResolver{}, mylogger.Nop())
	base := startServer(t, d)

	first := dial(t, base, "d-1")
	sendEvent(t, first, websocketdto.TypeAuth, websocketdto.Auth{Token: token(t, "d-1")})
	require.Eventually(t, func() bool { return d.Connected("d-1") }, 2*time.Second, 10*time.Millisecond)

	second := dial(t, base, "d-1")
	sendEvent(t, second, websocketdto.TypeAuth, websocketdto.Auth{Token: token(t, "d-1")})

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		return d.SendToDriver("d-1", websocketdto.Event{Type: websocketdto.TypeOrderOffer, Data: json.RawMessage(`{}`)}) == nil
	}, 2*time.Second, 10*time.Millisecond)
	got := readEvent(t, second)
	assert.Equal(t, websocketdto.TypeOrderOffer, got.Type)
	assert.Equal(t, 1, d.ConnectedCount())
}
