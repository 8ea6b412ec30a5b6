package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketKV            = []byte("kv")
	bucketSequence      = []byte("sequence")
	bucketSessionEvents = []byte("session_events")
	bucketRemoteCalls   = []byte("remote_calls")
)

// BoltStore is the bbolt-backed Backend. Journal rows are keyed by the
// big-endian global sequence so cursor order is sequence order.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) a bbolt database at path.
func OpenBolt(path string) (*BoltStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("bolt db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketKV, bucketSequence, bucketSessionEvents, bucketRemoteCalls} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// KV returns the key-value view of this store.
func (s *BoltStore) KV() KV {
	return &boltKV{db: s.db}
}

// Journal returns the append-only event journal of this store.
func (s *BoltStore) Journal() Journal {
	return &boltJournal{db: s.db}
}

type boltKV struct {
	db *bolt.DB
}

func (r *boltKV) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketKV).Get([]byte(key))
		if v != nil {
			// Values are only valid for the life of the transaction.
			out = append([]byte{}, v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return out, nil
}

func (r *boltKV) Set(_ context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	err := r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (r *boltKV) Remove(_ context.Context, key string) error {
	err := r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketKV).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

type boltJournal struct {
	db *bolt.DB
}

func (r *boltJournal) AppendSessionEvent(_ context.Context, data SessionEventData) error {
	err := r.append(bucketSessionEvents, func(seq int64) any {
		return SessionEvent{Sequence: seq, Timestamp: time.Now().UTC(), SessionEventData: data}
	})
	if err != nil {
		return fmt.Errorf("save session event: %w", err)
	}
	return nil
}

func (r *boltJournal) AppendRemoteCall(_ context.Context, data RemoteCallData) error {
	err := r.append(bucketRemoteCalls, func(seq int64) any {
		return RemoteCall{Sequence: seq, Timestamp: time.Now().UTC(), RemoteCallData: data}
	})
	if err != nil {
		return fmt.Errorf("save remote call: %w", err)
	}
	return nil
}

// append assigns the next global sequence and stores the built record in
// bucket, in one transaction.
func (r *boltJournal) append(bucket []byte, build func(seq int64) any) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		n, err := tx.Bucket(bucketSequence).NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		raw, err := json.Marshal(build(int64(n)))
		if err != nil {
			return err
		}
		return tx.Bucket(bucket).Put(seqKey(int64(n)), raw)
	})
}

func (r *boltJournal) SessionEvents(_ context.Context, opts QueryOpts) ([]SessionEvent, error) {
	var events []SessionEvent
	err := r.scan(bucketSessionEvents, opts, func(raw []byte) error {
		var e SessionEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	return events, nil
}

func (r *boltJournal) RemoteCalls(_ context.Context, opts QueryOpts) ([]RemoteCall, error) {
	var calls []RemoteCall
	err := r.scan(bucketRemoteCalls, opts, func(raw []byte) error {
		var c RemoteCall
		if err := json.Unmarshal(raw, &c); err != nil {
			return err
		}
		calls = append(calls, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query remote calls: %w", err)
	}
	return calls, nil
}

func (r *boltJournal) scan(bucket []byte, opts QueryOpts, fn func(raw []byte) error) error {
	return r.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		n := 0
		for k, v := c.Seek(seqKey(opts.After + 1)); k != nil; k, v = c.Next() {
			if opts.Limit > 0 && n >= opts.Limit {
				break
			}
			if err := fn(v); err != nil {
				return err
			}
			n++
		}
		return nil
	})
}

func seqKey(seq int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(seq))
	return b
}
