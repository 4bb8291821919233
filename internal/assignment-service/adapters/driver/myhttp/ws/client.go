package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"food-dispatch/internal/assignment-service/core/domain/model"
	websocketdto "food-dispatch/internal/assignment-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	readLimit      = 4096
	egressSize     = 16
	resolveTimeout = 10 * time.Second
)

var (
	errClientClosed = errors.New("connection closed")
	errEgressFull   = errors.New("send buffer full")
)

type Client struct {
	conn     *websocket.Conn
	dis      *Dispatcher
	driverID string
	egress   chan websocketdto.Event
	done     chan struct{}
	once     sync.Once
}

func newClient(conn *websocket.Conn, dis *Dispatcher, driverID string) *Client {
	return &Client{
		conn:     conn,
		dis:      dis,
		driverID: driverID,
		egress:   make(chan websocketdto.Event, egressSize),
		done:     make(chan struct{}),
	}
}

func (c *Client) send(e websocketdto.Event) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}
	select {
	case c.egress <- e:
		return nil
	case <-c.done:
		return errClientClosed
	default:
		return errEgressFull
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) readMessages() {
	log := c.dis.log.Action("ws_read").With("driver_id", c.driverID)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var e websocketdto.Event
		if err := c.conn.ReadJSON(&e); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("unexpected close", "error", err.Error())
			}
			return
		}

		switch e.Type {
		case websocketdto.TypeOfferResponse:
			c.handleOfferResponse(e)
		default:
			c.reply(websocketdto.TypeError, websocketdto.Error{Message: "unsupported event type " + e.Type})
		}
	}
}

func (c *Client) handleOfferResponse(e websocketdto.Event) {
	log := c.dis.log.Action("ws_offer_response").With("driver_id", c.driverID)

	var resp websocketdto.OfferResponse
	if err := json.Unmarshal(e.Data, &resp); err != nil {
		c.reply(websocketdto.TypeError, websocketdto.Error{Message: "malformed offer_response"})
		return
	}

	resolver := c.dis.responseResolver()
	if resolver == nil {
		c.reply(websocketdto.TypeError, websocketdto.Error{Message: "responses are not accepted on this channel"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	decision := model.Decision(strings.ToUpper(strings.TrimSpace(resp.Decision)))
	result, err := resolver.HandleStatusUpdate(ctx, resp.AssignmentID, c.driverID, decision)
	if err != nil {
		log.Warn("offer response rejected", "assignment_id", resp.AssignmentID, "error", err.Error())
		c.reply(websocketdto.TypeError, websocketdto.Error{Message: err.Error()})
		return
	}
	c.reply(websocketdto.TypeOfferResult, websocketdto.OfferResult{
		AssignmentID: resp.AssignmentID,
		Result:       string(result),
	})
}

func (c *Client) reply(typ string, data any) {
	e, err := websocketdto.NewEvent(typ, data)
	if err != nil {
		return
	}
	_ = c.send(e)
}

func (c *Client) writeMessages() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case e := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
