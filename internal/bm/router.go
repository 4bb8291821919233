package bm

import (
	"context"
	"errors"
	"sync"
	"time"

	"food-dispatch/internal/mylogger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	resubscribeDelay = 5 * time.Second
	requeueDelay     = 2 * time.Second
)

// HandlerFunc processes one delivery. A nil error acks the message. An error
// marked with Transient requeues a first delivery once; any other error, or a
// transient one on a redelivered message, nacks it without requeue.
type HandlerFunc func(ctx context.Context, msg amqp.Delivery) error

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as caused by a dependency that may recover.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

type route struct {
	binding Binding
	opts    ConsumeOptions
	handle  HandlerFunc
}

// Router maps queues to handlers. Routes are registered before Run.
type Router struct {
	consumer Consumer
	log      mylogger.Logger
	routes   []route
	wg       sync.WaitGroup
	retry    time.Duration
	requeue  time.Duration
}

func NewRouter(consumer Consumer, log mylogger.Logger) *Router {
	return &Router{
		consumer: consumer,
		log:      log,
		retry:    resubscribeDelay,
		requeue:  requeueDelay,
	}
}

// RequeueAfter sets how long a transient failure holds the message before it
// is requeued.
func (rt *Router) RequeueAfter(d time.Duration) {
	if d > 0 {
		rt.requeue = d
	}
}

func (rt *Router) Handle(b Binding, opts ConsumeOptions, h HandlerFunc) {
	rt.routes = append(rt.routes, route{binding: b, opts: opts, handle: h})
}

// Run subscribes every route and starts one worker per route. It fails if
// any initial subscription fails.
func (rt *Router) Run(ctx context.Context) error {
	streams := make([]<-chan amqp.Delivery, len(rt.routes))
	for i, r := range rt.routes {
		ch, err := rt.consumer.Consume(ctx, r.binding, r.opts)
		if err != nil {
			return err
		}
		streams[i] = ch
	}

	rt.wg.Add(len(rt.routes))
	for i, r := range rt.routes {
		go rt.work(ctx, r, streams[i])
	}
	return nil
}

// Wait blocks until every worker has stopped.
func (rt *Router) Wait() {
	rt.wg.Wait()
}

func (rt *Router) work(ctx context.Context, r route, ch <-chan amqp.Delivery) {
	log := rt.log.Action("work").With("queue", r.binding.Queue)
	defer func() {
		log.Info("worker is done")
		rt.wg.Done()
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				ch = rt.resubscribe(ctx, r, log)
				if ch == nil {
					return
				}
				continue
			}
			rt.dispatch(ctx, r, msg, log)
		case <-ctx.Done():
			return
		}
	}
}

func (rt *Router) dispatch(ctx context.Context, r route, msg amqp.Delivery, log mylogger.Logger) {
	err := r.handle(ctx, msg)
	if r.opts.AutoAck {
		return
	}
	if err != nil {
		requeue := IsTransient(err) && !msg.Redelivered
		if requeue {
			log.Warn("handler failed, requeueing message", "error", err.Error(), "routing_key", msg.RoutingKey, "message_id", msg.MessageId)
			rt.pause(ctx)
		} else {
			log.Error("handler failed, dropping message", err, "routing_key", msg.RoutingKey, "message_id", msg.MessageId)
		}
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			log.Error("cannot nack", nackErr)
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.Error("cannot ack", ackErr)
	}
}

func (rt *Router) pause(ctx context.Context) {
	t := time.NewTimer(rt.requeue)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (rt *Router) resubscribe(ctx context.Context, r route, log mylogger.Logger) <-chan amqp.Delivery {
	t := time.NewTicker(rt.retry)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			ch, err := rt.consumer.Consume(ctx, r.binding, r.opts)
			if err != nil {
				log.Warn("resubscribe failed", "error", err.Error())
				continue
			}
			log.Info("resubscribed")
			return ch
		}
	}
}
