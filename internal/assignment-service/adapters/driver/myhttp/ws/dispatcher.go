package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"food-dispatch/internal/assignment-service/adapters/driver/myhttp/middleware"
	websocketdto "food-dispatch/internal/assignment-service/core/domain/websocket_dto"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/mylogger"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const defaultAuthTimeout = 5 * time.Second

var (
	errAuthExpected  = errors.New("first message must be of type auth")
	errDriverMissing = errors.New("driver id is required")
	errWrongDriver   = errors.New("token belongs to another driver")
)

// websocketUpgrader upgrades incoming HTTP requests into a persistent websocket connection.
var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dispatcher keeps one authenticated connection per driver and pushes
// events to it.
type Dispatcher struct {
	clients map[string]*Client
	sync.RWMutex

	secret      string
	resolverMu  sync.RWMutex
	resolver    ports.IResponseResolver
	authTimeout time.Duration
	log         mylogger.Logger
}

var (
	_ ports.IDriverPusher      = (*Dispatcher)(nil)
	_ ports.IConnectionCounter = (*Dispatcher)(nil)
)

func NewDispatcher(secret string, resolver ports.IResponseResolver, log mylogger.Logger) *Dispatcher {
	return &Dispatcher{
		clients:     make(map[string]*Client),
		secret:      secret,
		resolver:    resolver,
		authTimeout: defaultAuthTimeout,
		log:         log,
	}
}

// SetResolver attaches the resolver that answers offer_response events. The
// fan-out depends on the dispatcher, so the resolver is attached after both
// are built.
func (d *Dispatcher) SetResolver(r ports.IResponseResolver) {
	d.resolverMu.Lock()
	d.resolver = r
	d.resolverMu.Unlock()
}

func (d *Dispatcher) responseResolver() ports.IResponseResolver {
	d.resolverMu.RLock()
	defer d.resolverMu.RUnlock()
	return d.resolver
}

// SendToDriver queues event for the driver's connection.
func (d *Dispatcher) SendToDriver(driverID string, event websocketdto.Event) error {
	d.RLock()
	client, ok := d.clients[driverID]
	d.RUnlock()
	if !ok {
		return myerrors.ErrDriverNotConnected
	}
	return client.send(event)
}

func (d *Dispatcher) Connected(driverID string) bool {
	d.RLock()
	defer d.RUnlock()
	_, ok := d.clients[driverID]
	return ok
}

func (d *Dispatcher) ConnectedCount() int {
	d.RLock()
	defer d.RUnlock()
	return len(d.clients)
}

// CloseAll drops every connection. Used on shutdown.
func (d *Dispatcher) CloseAll() {
	d.Lock()
	clients := d.clients
	d.clients = make(map[string]*Client)
	d.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// WsHandler serves /ws/drivers/{driver_id}. The first frame must be an auth
// event carrying a driver token for the same driver id.
func (d *Dispatcher) WsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		driverID := chi.URLParam(r, "driver_id")
		log := d.log.Action("ws_connect").With("driver_id", driverID)

		if driverID == "" {
			http.Error(w, errDriverMissing.Error(), http.StatusBadRequest)
			return
		}

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("cannot upgrade", err)
			return
		}

		if err := d.authenticate(conn, driverID); err != nil {
			log.Warn("auth failed", "error", err.Error())
			writeError(conn, err)
			_ = conn.Close()
			return
		}

		client := newClient(conn, d, driverID)
		d.addClient(client)
		log.Info("driver connected")

		go client.writeMessages()
		client.readMessages()

		d.removeClient(client)
		log.Info("driver disconnected")
	}
}

func (d *Dispatcher) authenticate(conn *websocket.Conn, driverID string) error {
	_ = conn.SetReadDeadline(time.Now().Add(d.authTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	var e websocketdto.Event
	if err := conn.ReadJSON(&e); err != nil {
		return err
	}
	if e.Type != websocketdto.TypeAuth {
		return errAuthExpected
	}
	var auth websocketdto.Auth
	if err := json.Unmarshal(e.Data, &auth); err != nil {
		return err
	}
	tokenDriver, err := middleware.ParseDriverToken(d.secret, auth.Token)
	if err != nil {
		return err
	}
	if tokenDriver != driverID {
		return errWrongDriver
	}
	return nil
}

func (d *Dispatcher) addClient(c *Client) {
	d.Lock()
	old, exists := d.clients[c.driverID]
	d.clients[c.driverID] = c
	d.Unlock()

	if exists {
		old.close()
	}
}

// removeClient unregisters c unless a newer connection replaced it.
func (d *Dispatcher) removeClient(c *Client) {
	d.Lock()
	if cur, ok := d.clients[c.driverID]; ok && cur == c {
		delete(d.clients, c.driverID)
	}
	d.Unlock()
	c.close()
}

func writeError(conn *websocket.Conn, err error) {
	e, mErr := websocketdto.NewEvent(websocketdto.TypeError, websocketdto.Error{Message: err.Error()})
	if mErr != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(e)
}
