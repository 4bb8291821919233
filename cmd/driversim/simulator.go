package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	messagebrokerdto "food-dispatch/internal/assignment-service/core/domain/message_broker_dto"
	websocketdto "food-dispatch/internal/assignment-service/core/domain/websocket_dto"
	"food-dispatch/internal/mylogger"

	"github.com/gorilla/websocket"
)

type Options struct {
	BaseURL     string
	DriverID    string
	Token       string
	AcceptRatio float64
	Delay       time.Duration
}

// Simulator holds one driver connection and answers every offer it is pushed.
type Simulator struct {
	opts   Options
	dialer *websocket.Dialer
	rnd    *rand.Rand
	log    mylogger.Logger
}

func NewSimulator(opts Options, log mylogger.Logger) *Simulator {
	return &Simulator{
		opts:   opts,
		dialer: websocket.DefaultDialer,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    log.With("driver_id", opts.DriverID),
	}
}

// Run connects, authenticates and answers offers until ctx is done or the
// server drops the connection.
func (s *Simulator) Run(ctx context.Context) error {
	url := fmt.Sprintf("%s/ws/drivers/%s", strings.TrimRight(s.opts.BaseURL, "/"), s.opts.DriverID)
	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", url, err)
	}
	defer conn.Close()
	s.log.Action("ws_connected").Info("connected", "url", url)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := send(conn, websocketdto.TypeAuth, websocketdto.Auth{Token: s.opts.Token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	for {
		var e websocketdto.Event
		if err := conn.ReadJSON(&e); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if err := s.handle(ctx, conn, e); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (s *Simulator) handle(ctx context.Context, conn *websocket.Conn, e websocketdto.Event) error {
	switch e.Type {
	case websocketdto.TypeOrderOffer:
		var offer messagebrokerdto.OrderOffer
		if err := json.Unmarshal(e.Data, &offer); err != nil {
			s.log.Warn("cannot decode offer", "error", err.Error())
			return nil
		}
		decision := s.decide()
		s.log.Action("offer_received").Info("offer",
			"order_id", offer.OrderID,
			"restaurant", offer.RestaurantName,
			"payment", offer.Payment,
			"expires", offer.ExpiryTime,
			"decision", decision,
		)

		if s.opts.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.opts.Delay):
			}
		}
		return send(conn, websocketdto.TypeOfferResponse, websocketdto.OfferResponse{
			AssignmentID: offer.AssignmentID,
			Decision:     decision,
		})

	case websocketdto.TypeOfferResult:
		var res websocketdto.OfferResult
		_ = json.Unmarshal(e.Data, &res)
		s.log.Info("offer result", "assignment_id", res.AssignmentID, "result", res.Result)

	case websocketdto.TypeError:
		var msg websocketdto.Error
		_ = json.Unmarshal(e.Data, &msg)
		s.log.Warn("server error", "message", msg.Message)

	default:
		s.log.Debug("ignoring event", "type", e.Type)
	}
	return nil
}

func (s *Simulator) decide() string {
	if s.rnd.Float64() < s.opts.AcceptRatio {
		return "ACCEPTED"
	}
	return "REJECTED"
}

func send(conn *websocket.Conn, typ string, data any) error {
	e, err := websocketdto.NewEvent(typ, data)
	if err != nil {
		return err
	}
	return conn.WriteJSON(e)
}
