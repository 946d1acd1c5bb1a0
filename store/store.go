// Package store keeps BIPF documents in named collections, one encoded
// value per document id, on top of Bolt or an in-memory backend.
//
// Reads never decode whole documents unless asked to: Lookup and Find seek
// inside the stored bytes and decode only the addressed value.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.etcd.io/bbolt"

	"github.com/andreyvit/bipf"
)

type Store struct {
	st     storage
	codec  bipf.Options
	logger *slog.Logger
	path   string
}

type Options struct {
	// Codec controls how values are encoded on Put and decoded on Get.
	Codec bipf.Options

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// IsTesting trades durability for speed.
	IsTesting bool

	// MmapSize is the initial Bolt mmap size; zero picks a default.
	MmapSize int

	// Timeout is how long Open waits for the Bolt file lock. Defaults to
	// 10 seconds.
	Timeout time.Duration
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Timeout == 0 {
		o.Timeout = 10 * time.Second
	}
}

// Open opens or creates a Bolt-backed store at path.
func Open(path string, opt Options) (*Store, error) {
	opt.setDefaults()

	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = opt.Timeout
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 1024
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	s := newStore(newBoltStorage(bdb), opt)
	s.path = path
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "store: opened", slog.String("path", path))
	return s, nil
}

// OpenMemory returns a transient in-memory store.
func OpenMemory(opt Options) *Store {
	opt.setDefaults()
	return newStore(newMemStorage(), opt)
}

func newStore(st storage, opt Options) *Store {
	return &Store{
		st:     st,
		codec:  opt.Codec,
		logger: opt.Logger,
	}
}

func (s *Store) Close() error {
	err := s.st.Close()
	if err != nil {
		return fmt.Errorf("store: closing: %w", err)
	}
	if s.path != "" {
		s.logger.LogAttrs(context.Background(), slog.LevelDebug, "store: closed", slog.String("path", s.path))
	}
	return nil
}

// Read runs fn in a read-only transaction.
func (s *Store) Read(fn func(tx *Tx) error) error {
	stx, err := s.st.BeginTx(false)
	if err != nil {
		return fmt.Errorf("store: begin read: %w", err)
	}
	tx := &Tx{store: s, stx: stx}
	defer tx.close()
	return safelyCall(fn, tx)
}

// Write runs fn in a writable transaction and commits it if fn returns nil.
// A returned error or a panic rolls the transaction back.
func (s *Store) Write(fn func(tx *Tx) error) error {
	stx, err := s.st.BeginTx(true)
	if err != nil {
		return fmt.Errorf("store: begin write: %w", err)
	}
	tx := &Tx{store: s, stx: stx}
	defer tx.close()

	err = safelyCall(fn, tx)
	if err != nil {
		if p, ok := err.(panicked); ok {
			s.logger.LogAttrs(context.Background(), slog.LevelError, "store: write panicked", slog.Any("reason", p.reason))
		} else if tx.written {
			s.logger.LogAttrs(context.Background(), slog.LevelDebug, "store: write rolled back", slog.Any("err", err))
		}
		return err
	}
	if !tx.written {
		return nil
	}
	err = stx.Commit()
	if err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func safelyCall(fn func(*Tx) error, tx *Tx) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = panicked{p, string(debug.Stack())}
		}
	}()
	return fn(tx)
}

func (s *Store) Put(coll, id string, v bipf.Value) error {
	return s.Write(func(tx *Tx) error {
		return tx.Put(coll, id, v)
	})
}

func (s *Store) Get(coll, id string) (v bipf.Value, found bool, err error) {
	err = s.Read(func(tx *Tx) error {
		v, found, err = tx.Get(coll, id)
		return err
	})
	return
}

func (s *Store) Lookup(coll, id string, path ...any) (v bipf.Value, found bool, err error) {
	err = s.Read(func(tx *Tx) error {
		v, found, err = tx.Lookup(coll, id, path...)
		return err
	})
	return
}

func (s *Store) Patch(coll, id string, patch []byte) error {
	return s.Write(func(tx *Tx) error {
		return tx.Patch(coll, id, patch)
	})
}

func (s *Store) MergePatch(coll, id string, patch []byte) error {
	return s.Write(func(tx *Tx) error {
		return tx.MergePatch(coll, id, patch)
	})
}

func (s *Store) Delete(coll, id string) (found bool, err error) {
	err = s.Write(func(tx *Tx) error {
		found, err = tx.Delete(coll, id)
		return err
	})
	return
}

// Scan calls fn for every document of coll inside a single read
// transaction. raw is only valid during the call.
func (s *Store) Scan(coll string, fn func(id string, raw []byte) bool) error {
	return s.Read(func(tx *Tx) error {
		return tx.Scan(coll, fn)
	})
}

func (s *Store) Find(coll string, path []any, want bipf.Value) (ids []string, err error) {
	err = s.Read(func(tx *Tx) error {
		ids, err = tx.Find(coll, path, want)
		return err
	})
	return
}

func (s *Store) Count(coll string) (n int, err error) {
	err = s.Read(func(tx *Tx) error {
		n = tx.Count(coll)
		return nil
	})
	return
}
