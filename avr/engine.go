// Package avr drives an A/V receiver over a serial line.
//
// An Engine owns the transport to a single receiver and runs every
// command/response exchange through one event loop, so that exchanges
// never interleave on the wire. Commands are spaced according to the
// receiver's dialect and replies are framed, decoded and classified into
// status maps.
//
//	config, err := avr.NewConfigBuilder().
//		WithDialect(d).
//		WithDialer(avr.SerialDialer{PortName: "/dev/ttyUSB0"}).
//		Build()
//	engine, err := avr.New(config)
//	go engine.Run(ctx)
//	err = engine.Connect(ctx)
//	status, err := engine.ZoneStatus(ctx, 1)
package avr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"i4.energy/across/avrctl/dialect"
)

// Engine serializes command/response transactions with one receiver.
type Engine struct {
	config   Config
	dialect  *dialect.Dialect
	logger   *slog.Logger
	link     *link
	throttle *Throttle
	reader   *lineReader

	closed      atomic.Bool
	loopRunning atomic.Bool

	// requests hands transactions to the loop. It is unbuffered; callers
	// queue on the send.
	requests chan *request

	loopCtx    context.Context
	loopCancel context.CancelFunc
}

// Transaction is a single exchange with the receiver.
type Transaction struct {
	// Command names the exchange in logs and errors.
	Command string
	// Payload is sent as is, terminator included.
	Payload []byte
	// Skip is the number of leading reply bytes the terminator search passes
	// over. The returned line still includes them.
	Skip int
	// WaitForReply reads and classifies one reply line after the write.
	WaitForReply bool
	// HoldAfter keeps the next transmission back for this long once the
	// payload is written.
	HoldAfter time.Duration
}

type request struct {
	ctx      context.Context
	tx       Transaction
	respChan chan response
}

type response struct {
	status dialect.Status
	err    error
}

// New creates an Engine. It does not open a transport; call Connect or
// Attach, and start Run.
func New(config Config) (*Engine, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	logger := config.Logger.With("component", "avr", "dialect", config.Dialect.Name())
	e := &Engine{
		config:   config,
		dialect:  config.Dialect,
		logger:   logger,
		link:     newLink(logger),
		throttle: NewThrottle(config.MinSendInterval, config.Clock),
		reader:   &lineReader{terminator: config.Dialect.Terminator(), logger: logger},
		requests: make(chan *request),
	}
	e.loopCtx, e.loopCancel = context.WithCancel(context.Background())
	return e, nil
}

// Dialect returns the protocol the engine speaks.
func (e *Engine) Dialect() *dialect.Dialect {
	return e.dialect
}

// State reports whether a transport is currently attached.
func (e *Engine) State() State {
	return e.link.state()
}

// WaitConnected blocks until a transport is attached or ctx is done.
func (e *Engine) WaitConnected(ctx context.Context) error {
	return e.link.wait(ctx)
}

// Attach hands an open transport to the engine. Any previous transport is
// closed.
func (e *Engine) Attach(t Transport) error {
	if e.closed.Load() {
		return ErrAlreadyClosed
	}
	if t == nil {
		return errors.New("avr: transport is nil")
	}
	e.link.attach(t)
	return nil
}

// Connect opens a transport through the configured Dialer and attaches it.
func (e *Engine) Connect(ctx context.Context) error {
	if e.closed.Load() {
		return ErrAlreadyClosed
	}
	if e.config.Dialer == nil {
		return ErrNoDialer
	}
	t, err := e.config.Dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	if t == nil {
		return fmt.Errorf("dial: %w", ErrNotConnected)
	}
	return e.Attach(t)
}

// Run is the event loop that performs all transport I/O. It must be
// running for any command to complete, and returns when ctx is done or
// the engine is closed.
//
//	go engine.Run(ctx)
func (e *Engine) Run(ctx context.Context) error {
	if !e.loopRunning.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer e.loopRunning.Store(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.loopCtx.Done():
			return nil
		case req := <-e.requests:
			req.respChan <- e.transact(req)
		}
	}
}

// SendCommand formats command name with args and runs it as one
// transaction. With waitForReply the classified reply is returned; a reply
// that matches no known pattern yields a nil Status and no error.
func (e *Engine) SendCommand(ctx context.Context, name string, args dialect.Args, waitForReply bool) (dialect.Status, error) {
	if e.closed.Load() {
		return nil, ErrAlreadyClosed
	}
	payload, err := e.dialect.Format(name, args)
	if err != nil {
		return nil, err
	}
	return e.Do(ctx, Transaction{Command: name, Payload: payload, WaitForReply: waitForReply})
}

// Do runs a prepared transaction.
func (e *Engine) Do(ctx context.Context, tx Transaction) (dialect.Status, error) {
	if e.closed.Load() {
		return nil, ErrAlreadyClosed
	}

	if _, ok := ctx.Deadline(); !ok && e.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.RequestTimeout)
		defer cancel()
	}

	connectCtx, cancel := context.WithTimeout(ctx, e.config.ConnectTimeout)
	_, err := e.link.session(connectCtx)
	cancel()
	if err != nil {
		return nil, err
	}

	req := &request{
		ctx:      ctx,
		tx:       tx,
		respChan: make(chan response, 1),
	}

	select {
	case e.requests <- req:
	case <-ctx.Done():
		return nil, fmt.Errorf("command %q cancelled before sending: %w", tx.Command, ctx.Err())
	case <-e.loopCtx.Done():
		return nil, ErrAlreadyClosed
	}

	select {
	case resp := <-req.respChan:
		return resp.status, resp.err
	case <-ctx.Done():
		return nil, fmt.Errorf("command %q: %w", tx.Command, ctx.Err())
	case <-e.loopCtx.Done():
		return nil, ErrAlreadyClosed
	}
}

// DelayNextRequest holds the next transmission back for at least d, on
// top of the normal spacing.
func (e *Engine) DelayNextRequest(d time.Duration) {
	e.throttle.DelayNext(d)
}

// transact runs on the loop goroutine.
func (e *Engine) transact(req *request) response {
	tx := req.tx
	logger := e.logger.With("command", tx.Command)

	if err := req.ctx.Err(); err != nil {
		return response{err: fmt.Errorf("command %q abandoned: %w", tx.Command, err)}
	}

	s, err := e.link.session(req.ctx)
	if err != nil {
		return response{err: err}
	}

	if err := e.throttle.Wait(req.ctx); err != nil {
		return response{err: fmt.Errorf("command %q: %w", tx.Command, err)}
	}

	s.flush(logger)

	logger.Debug("sending", "data", string(tx.Payload))
	if _, err := s.transport.Write(tx.Payload); err != nil {
		e.link.drop(s, err)
		return response{err: fmt.Errorf("%w: write %q: %w", ErrConnectionLost, tx.Command, err)}
	}
	e.throttle.RecordSend(e.config.Clock.Now())
	if tx.HoldAfter > 0 {
		e.throttle.DelayNext(tx.HoldAfter)
	}

	if !tx.WaitForReply {
		return response{}
	}

	line, err := e.reader.ReadLine(req.ctx, s, tx.Skip, e.config.ReadTimeout)
	if err != nil {
		var timeout *ReadTimeoutError
		switch {
		case errors.As(err, &timeout):
			timeout.Command = tx.Command
			logger.Warn("no complete reply", "timeout", timeout.Timeout, "partial", string(timeout.Partial))
		case errors.Is(err, ErrConnectionLost):
			e.link.drop(s, err)
		}
		return response{err: err}
	}

	text := e.dialect.Encoding().Decode(line)
	logger.Debug("received", "data", text)
	return response{status: e.statusFor(text, logger)}
}

// statusFor turns a reply line into a status map. Status replies are only
// sent for powered zones, and "zone off" replies carry no fields at all.
func (e *Engine) statusFor(text string, logger *slog.Logger) dialect.Status {
	reply := e.dialect.Resolve(text)
	switch reply.Kind {
	case dialect.ZoneOff:
		return dialect.Status{"zone": strconv.Itoa(reply.Zone), "power": false}
	case dialect.Structured:
		if reply.Name == e.dialect.StatusResponse() {
			reply.Status["power"] = true
		}
		return reply.Status
	default:
		logger.Info("unrecognized reply", "data", text)
		return nil
	}
}

// Close stops the loop and closes the transport. The engine cannot be
// reused.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrAlreadyClosed
	}
	e.loopCancel()
	return e.link.close()
}
