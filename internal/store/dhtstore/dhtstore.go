// Package dhtstore implements store.Store over a Kademlia-style DHT
// (go-libp2p-kad-dht), mirroring the teacher's pkg/p2p.P2P wiring of a
// libp2p host alongside a *dht.IpfsDHT. Puts are fire-and-forget; gets and
// contains-probes are coalesced through a single-owner actor goroutine fed
// by a bounded request channel, per spec §4.4/§5/§9 and the original Rust
// implementation's oneshot-channel NetworkRequest actor.
package dhtstore

import (
	"context"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"

	"github.com/georgecane/opencoin/internal/codec"
	"github.com/georgecane/opencoin/internal/store"
	"github.com/georgecane/opencoin/internal/wasmerr"
)

const (
	keyPrefix       = "/wasmexec/"
	loadDeadline    = 3 * time.Second
	containsDeadline = 2 * time.Second
	requestChanCap  = 50
)

func dhtKey(name string) string { return keyPrefix + name }

type getResult struct {
	value []byte
	err   error
}

type getRequest struct {
	key   string
	reply chan getResult
}

type putRequest struct {
	key   string
	value []byte
}

type queryDone struct {
	key   string
	value []byte
	err   error
}

// Logger is the minimal logging capability dhtstore needs; satisfied by a
// *zap.SugaredLogger via internal/logging.
type Logger interface {
	Warnw(msg string, keysAndValues ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
}

// Store is a DHT-backed store.Store implementation.
type Store struct {
	dht    *dht.IpfsDHT
	log    Logger
	getCh  chan getRequest
	putCh  chan putRequest
	doneCh chan queryDone
}

// New starts the coalescing actor over d and returns a Store. ctx bounds the
// actor's lifetime; cancelling it stops the actor and abandons in-flight
// requests.
func New(ctx context.Context, d *dht.IpfsDHT, log Logger) *Store {
	s := &Store{
		dht:    d,
		log:    log,
		getCh:  make(chan getRequest, requestChanCap),
		putCh:  make(chan putRequest, requestChanCap),
		doneCh: make(chan queryDone, requestChanCap),
	}
	go s.run(ctx)
	return s
}

// run is the single owner of the coalescing table; all mutation happens
// here, driven by messages from getCh/putCh/doneCh. There is no lock.
func (s *Store) run(ctx context.Context) {
	awaiting := make(map[string][]chan getResult)

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-s.getCh:
			if waiters, inflight := awaiting[req.key]; inflight {
				awaiting[req.key] = append(waiters, req.reply)
				continue
			}
			awaiting[req.key] = []chan getResult{req.reply}
			go s.runQuery(ctx, req.key)

		case d := <-s.doneCh:
			waiters := awaiting[d.key]
			delete(awaiting, d.key)
			for _, w := range waiters {
				w <- getResult{value: d.value, err: d.err}
			}

		case p := <-s.putCh:
			go s.runPut(ctx, p.key, p.value)
		}
	}
}

func (s *Store) runQuery(ctx context.Context, key string) {
	value, err := s.dht.GetValue(ctx, key)
	select {
	case s.doneCh <- queryDone{key: key, value: value, err: err}:
	case <-ctx.Done():
	}
}

func (s *Store) runPut(ctx context.Context, key string, value []byte) {
	if err := s.dht.PutValue(ctx, key, value); err != nil {
		s.log.Warnw("dht put failed", "key", key, "error", err)
		return
	}
	s.log.Debugw("dht put acknowledged", "key", key)
}

// Load implements store.Store: submits a coalesced DHT get with a 3s
// deadline; timeout or lookup failure is reported as NotFound.
func (s *Store) Load(ctx context.Context, name string) (store.Record, error) {
	value, err := s.get(ctx, dhtKey(name), loadDeadline)
	if err != nil {
		return store.Record{}, &wasmerr.NotFoundError{Kind: "module", Name: name}
	}
	rec, err := codec.Decode(value)
	if err != nil {
		return store.Record{}, err
	}
	return store.Record{Code: rec.Code, Dependencies: rec.Dependencies}, nil
}

// Contains implements store.Store: identical request flow as Load but with
// a 2s deadline, projected to a boolean. A timeout conservatively means
// "no" rather than an error, so callers like Registry's precondition check
// treat "don't know" as "not present".
func (s *Store) Contains(ctx context.Context, name string) (bool, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, containsDeadline)
	defer cancel()

	reply := make(chan getResult, 1)
	select {
	case s.getCh <- getRequest{key: dhtKey(name), reply: reply}:
	case <-ctx.Done():
		return false, &wasmerr.TransportError{Cause: ctx.Err()}
	}

	select {
	case res := <-reply:
		if res.err != nil {
			return false, nil // lookup failure: conservative "no", not an error
		}
		return true, nil
	case <-deadlineCtx.Done():
		return false, nil
	}
}

// get performs the coalesced request/reply handshake used by Load (Contains
// runs the same handshake inline), enforcing deadline as a hard wall-clock
// bound.
func (s *Store) get(ctx context.Context, key string, deadline time.Duration) ([]byte, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	reply := make(chan getResult, 1)
	select {
	case s.getCh <- getRequest{key: key, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.value, res.err
	case <-deadlineCtx.Done():
		return nil, deadlineCtx.Err()
	}
}

// Put implements store.Store: fire-and-forget, returning as soon as the
// request is accepted onto the local bounded channel. Network-layer
// confirmation is reported only via log.
func (s *Store) Put(ctx context.Context, name string, code []byte, deps []string) error {
	select {
	case s.putCh <- putRequest{key: dhtKey(name), value: codec.Encode(code, deps)}:
		return nil
	case <-ctx.Done():
		return &wasmerr.TransportError{Cause: ctx.Err()}
	}
}
