package kvstore

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/avast/retry-go"
	"github.com/fystack/kvcache/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	// DefaultPath is the backing file used when none is given.
	DefaultPath = "datastore"

	defaultFileMode = 0600
	flushRetryDelay = 50 * time.Millisecond
)

type options struct {
	autosync      bool
	log           *zerolog.Logger
	codec         Codec
	mode          os.FileMode
	flushAttempts uint
}

// Option configures a FileStore.
type Option func(*options)

// WithAutosync flushes the store after every Set and Delete.
func WithAutosync(autosync bool) Option {
	return func(o *options) { o.autosync = autosync }
}

// WithLogger replaces the package logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = &l }
}

// WithCodec replaces the default CBOR codec.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithFileMode sets the permissions of the backing file written by Flush.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) { o.mode = mode }
}

// WithFlushAttempts retries a flush that fails with an I/O error, up to the
// given total number of attempts. Values below 1 are treated as 1.
func WithFlushAttempts(n uint) Option {
	return func(o *options) { o.flushAttempts = n }
}

// FileStore is an in-memory map persisted wholesale to a single file. With
// the default codec, values held in interface types reload as CBOR's
// default Go types (see CBORCodec), so a stored int comes back as int64.
type FileStore[K comparable, V any] struct {
	path     string
	autosync bool
	data     map[K]V
	dirty    bool

	codec         Codec
	mode          os.FileMode
	flushAttempts uint
	log           zerolog.Logger
}

var _ KVStore[string, any] = (*FileStore[string, any])(nil)

// New creates a store backed by path and loads the file if it exists. A
// missing file, or one that fails to load, leaves the store empty; load
// failures are logged and never prevent construction.
func New[K comparable, V any](path string, opts ...Option) *FileStore[K, V] {
	if path == "" {
		path = DefaultPath
	}

	o := options{
		mode:          defaultFileMode,
		flushAttempts: 1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		o.codec = defaultCodec
	}
	if o.flushAttempts < 1 {
		o.flushAttempts = 1
	}
	log := logger.With("kvstore")
	if o.log != nil {
		log = *o.log
	}

	s := &FileStore[K, V]{
		path:          path,
		autosync:      o.autosync,
		data:          make(map[K]V),
		codec:         o.codec,
		mode:          o.mode,
		flushAttempts: o.flushAttempts,
		log:           log.With().Str("path", path).Logger(),
	}

	// Failures are already logged by Load.
	_, _ = s.Load()

	return s
}

// Path returns the backing file path.
func (s *FileStore[K, V]) Path() string {
	return s.path
}

// Autosync reports whether mutations flush immediately.
func (s *FileStore[K, V]) Autosync() bool {
	return s.autosync
}

// SetAutosync toggles autosync. Enabling it does not flush pending changes.
func (s *FileStore[K, V]) SetAutosync(autosync bool) {
	s.autosync = autosync
}

// Dirty reports whether the store holds changes that have not been flushed.
func (s *FileStore[K, V]) Dirty() bool {
	return s.dirty
}

// Set stores value under key. With autosync on, the store is flushed and the
// flush error, if any, is returned; the in-memory change is kept either way.
func (s *FileStore[K, V]) Set(key K, value V) error {
	s.data[key] = value
	s.dirty = true
	return s.sync("set")
}

// Get returns the value stored under key.
func (s *FileStore[K, V]) Get(key K) (V, error) {
	v, ok := s.data[key]
	if !ok {
		var zero V
		return zero, keyNotFound(key)
	}
	return v, nil
}

// Contains reports whether key is present.
func (s *FileStore[K, V]) Contains(key K) bool {
	_, ok := s.data[key]
	return ok
}

// Delete removes key. Deleting an absent key is an error and does not flush.
func (s *FileStore[K, V]) Delete(key K) error {
	if _, ok := s.data[key]; !ok {
		return keyNotFound(key)
	}
	delete(s.data, key)
	s.dirty = true
	return s.sync("delete")
}

// Size returns the number of entries in memory.
func (s *FileStore[K, V]) Size() int {
	return len(s.data)
}

// Keys returns the keys in memory in no particular order.
func (s *FileStore[K, V]) Keys() []K {
	return lo.Keys(s.data)
}

func (s *FileStore[K, V]) sync(op string) error {
	if s.autosync {
		return s.Flush()
	}
	s.log.Debug().Str("op", op).Int("entries", len(s.data)).Msg("autosync disabled, change held in memory until flush")
	return nil
}

// Load replaces the in-memory entries with the content of the backing file.
// It returns false and a nil error when the file is missing or empty. On
// failure the in-memory entries are left as they were.
func (s *FileStore[K, V]) Load() (bool, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Info().Msg("backing file not found, nothing loaded")
		return false, nil
	}
	if err != nil {
		err = ioFailure("stat", s.path, err)
		s.log.Error().Err(err).Msg("load failed")
		return false, err
	}
	if info.Size() == 0 {
		s.log.Info().Msg("backing file is empty, nothing loaded")
		return false, nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		err = ioFailure("read", s.path, err)
		s.log.Error().Err(err).Msg("load failed")
		return false, err
	}

	data := make(map[K]V)
	if err := s.codec.Unmarshal(raw, &data); err != nil {
		err = serializationFailure("decode", s.path, err)
		s.log.Error().Err(err).Msg("load failed")
		return false, err
	}
	// An encoded nil map decodes to nil.
	if data == nil {
		data = make(map[K]V)
	}

	s.data = data
	s.dirty = false
	s.log.Debug().Int("entries", len(data)).Msg("loaded backing file")
	return true, nil
}

// Flush writes every entry to the backing file, replacing its content
// atomically. On failure the previous file content and the in-memory entries
// are unchanged.
func (s *FileStore[K, V]) Flush() error {
	payload, err := s.codec.Marshal(s.data)
	if err != nil {
		err = serializationFailure("encode", s.path, err)
		s.log.Error().Err(err).Msg("flush failed")
		return err
	}

	err = retry.Do(
		func() error {
			return writeFileAtomic(s.path, payload, s.mode)
		},
		retry.Attempts(s.flushAttempts),
		retry.Delay(flushRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn().Err(err).Uint("attempt", n+1).Uint("attempts", s.flushAttempts).Msg("flush attempt failed")
		}),
	)
	if err != nil {
		err = ioFailure("write", s.path, err)
		s.log.Error().Err(err).Msg("flush failed")
		return err
	}

	s.dirty = false
	s.log.Debug().Int("entries", len(s.data)).Int("bytes", len(payload)).Msg("flushed backing file")
	return nil
}
