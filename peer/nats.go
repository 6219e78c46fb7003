package peer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const defaultSubject = "flightcache.events"

var ErrNilKeyValue = errors.New("peer: nil nats key-value bucket")

// KeyValue is the subset of nats.KeyValue used for locks.
type KeyValue interface {
	Create(key string, value []byte) (uint64, error)
	Delete(key string, opts ...nats.DeleteOpt) error
}

// Conn is the subset of *nats.Conn used for events.
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type NATSConfig struct {
	// KeyValue holds the locks. Its bucket TTL is the lock TTL; see LockBucket.
	KeyValue KeyValue
	// Conn carries events. nil => locks only, no events.
	Conn Conn
	// Subject for emitted entries. "" => "flightcache.events".
	Subject string
}

// NATS coordinates through JetStream KeyValue create-if-absent locks and core
// NATS pub/sub.
type NATS struct {
	kv      KeyValue
	conn    Conn
	subject string

	revs sync.Map // key -> revision of a lock we hold
	fan  *fanout

	sub  *nats.Subscription
	once sync.Once
}

var _ Coordinator = (*NATS)(nil)

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.KeyValue == nil {
		return nil, ErrNilKeyValue
	}
	n := &NATS{
		kv:      cfg.KeyValue,
		conn:    cfg.Conn,
		subject: cfg.Subject,
		fan:     newFanout(),
	}
	if n.subject == "" {
		n.subject = defaultSubject
	}
	if n.conn != nil {
		sub, err := n.conn.Subscribe(n.subject, func(m *nats.Msg) { n.fan.dispatch(m.Data) })
		if err != nil {
			return nil, fmt.Errorf("peer: subscribe %q: %w", n.subject, err)
		}
		n.sub = sub
	}
	return n, nil
}

// LockBucket opens the named KeyValue bucket, creating it with ttl as the
// per-entry max age when it does not exist yet.
func LockBucket(js nats.JetStreamContext, bucket string, ttl time.Duration) (nats.KeyValue, error) {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	kv, err := js.KeyValue(bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: bucket, TTL: ttl, History: 1})
	}
	if err != nil {
		return nil, fmt.Errorf("peer: lock bucket %q: %w", bucket, err)
	}
	return kv, nil
}

// KV keys allow a restricted alphabet; cache keys do not.
func kvKey(key string) string { return base64.RawURLEncoding.EncodeToString([]byte(key)) }

func (n *NATS) Lock(_ context.Context, key string) (bool, error) {
	rev, err := n.kv.Create(kvKey(key), []byte(n.fan.origin))
	if errors.Is(err, nats.ErrKeyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	n.revs.Store(key, rev)
	return true, nil
}

func (n *NATS) Unlock(_ context.Context, key string) error {
	rev, ok := n.revs.LoadAndDelete(key)
	if !ok {
		return nil
	}
	err := n.kv.Delete(kvKey(key), nats.LastRevision(rev.(uint64)))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (n *NATS) Emit(_ context.Context, key string, value []byte) error {
	if n.conn == nil {
		return nil
	}
	b, err := n.fan.encode(key, value)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, b)
}

func (n *NATS) OnEvent(h Handler) { n.fan.add(h) }

// Close unsubscribes. The connection is left open.
func (n *NATS) Close(_ context.Context) error {
	var err error
	n.once.Do(func() {
		if n.sub != nil {
			err = n.sub.Unsubscribe()
		}
	})
	return err
}
