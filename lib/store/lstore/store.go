package lstore

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/XiaonuoGantan/rsedis/lib/common"
	"github.com/XiaonuoGantan/rsedis/lib/db"
	"github.com/XiaonuoGantan/rsedis/lib/store"
	"github.com/XiaonuoGantan/rsedis/lib/value"
	"github.com/lni/dragonboat/v4/logger"
)

var plog = logger.GetLogger(common.LoggerStore)

var _ store.IStore = (*Store)(nil)

// Store is a local, thread-safe store.IStore backed by a single db.Database.
type Store struct {
	db     *db.Database
	config common.EngineConfig
	locks  []sync.Mutex // One lock per database index

	// metrics
	metrics *metrics.Set
	hits    *metrics.Counter
	misses  *metrics.Counter

	// active expiration
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLocalStore creates a new local store with the given configuration.
// If config.SweepInterval > 0, a background goroutine runs the active expire cycle until Close.
func NewLocalStore(factory store.DBFactory, config common.EngineConfig) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		db:      factory(),
		config:  config,
		locks:   make([]sync.Mutex, config.Databases),
		metrics: metrics.NewSet(),
		stop:    make(chan struct{}),
	}

	s.hits = s.metrics.NewCounter("rsedis_keyspace_hits_total")
	s.misses = s.metrics.NewCounter("rsedis_keyspace_misses_total")
	s.metrics.NewGauge("rsedis_expired_keys", func() float64 {
		return float64(s.db.ExpiredKeys())
	})

	if config.SweepInterval > 0 {
		s.wg.Add(1)
		go s.activeExpire()
	}

	return s, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// lock validates the index and locks its database. The returned function unlocks it.
// It also counts the command in the metrics.
func (s *Store) lock(cmd string, dbIndex uint32) (func(), error) {
	s.metrics.GetOrCreateCounter(fmt.Sprintf(`rsedis_commands_total{cmd=%q}`, cmd)).Inc()

	if dbIndex >= s.config.Databases {
		return nil, store.NewError(store.RetCInvalidDBIndex, "DB index is out of range")
	}
	mu := &s.locks[dbIndex]
	mu.Lock()
	return mu.Unlock, nil
}

// lockAll locks every database in index order
func (s *Store) lockAll() func() {
	for i := range s.locks {
		s.locks[i].Lock()
	}
	return func() {
		for i := len(s.locks) - 1; i >= 0; i-- {
			s.locks[i].Unlock()
		}
	}
}

// track counts a read as keyspace hit or miss
func (s *Store) track(found bool) {
	if found {
		s.hits.Inc()
	} else {
		s.misses.Inc()
	}
}

// checkSize returns an error if a value would grow beyond the max value size
func (s *Store) checkSize(length uint64) error {
	if length > s.config.MaxValueBytes {
		return store.NewError(store.RetCValueTooLarge, "string exceeds maximum allowed size")
	}
	return nil
}

// toStoreError maps value errors to store errors
func toStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, value.ErrNotAnInteger):
		return store.NewError(store.RetCNotAnInteger, "value is not an integer or out of range")
	case errors.Is(err, value.ErrOutOfRange):
		return store.NewError(store.RetCOutOfRange, "increment or decrement would overflow")
	case errors.Is(err, value.ErrTooLarge):
		return store.NewError(store.RetCValueTooLarge, "string exceeds maximum allowed size")
	default:
		return store.NewError(store.RetCInternalError, err.Error())
	}
}

// cloneBytes copies b so that callers never alias stored values
func cloneBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Set(dbIndex uint32, key, val []byte) error {
	unlock, err := s.lock("set", dbIndex)
	if err != nil {
		return err
	}
	defer unlock()

	s.db.GetOrCreate(dbIndex, key).Set(val)
	s.db.Persist(dbIndex, key)
	return nil
}

func (s *Store) SetPX(dbIndex uint32, key, val []byte, atMs int64) error {
	unlock, err := s.lock("set", dbIndex)
	if err != nil {
		return err
	}
	defer unlock()

	s.db.GetOrCreate(dbIndex, key).Set(val)
	s.db.SetMsExpiration(dbIndex, key, atMs)
	return nil
}

func (s *Store) Get(dbIndex uint32, key []byte) ([]byte, bool, error) {
	unlock, err := s.lock("get", dbIndex)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	v, ok := s.db.Get(dbIndex, key)
	s.track(ok)
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v.Bytes()), true, nil
}

func (s *Store) Append(dbIndex uint32, key, val []byte) (int, error) {
	unlock, err := s.lock("append", dbIndex)
	if err != nil {
		return 0, err
	}
	defer unlock()

	current := 0
	if v, ok := s.db.Get(dbIndex, key); ok {
		current = v.Len()
	}
	if err := s.checkSize(uint64(current) + uint64(len(val))); err != nil {
		return 0, err
	}

	return s.db.GetOrCreate(dbIndex, key).Append(val), nil
}

func (s *Store) IncrBy(dbIndex uint32, key []byte, delta int64) (int64, error) {
	unlock, err := s.lock("incrby", dbIndex)
	if err != nil {
		return 0, err
	}
	defer unlock()

	n, err := s.db.GetOrCreate(dbIndex, key).Incr(delta)
	return n, toStoreError(err)
}

func (s *Store) GetRange(dbIndex uint32, key []byte, start, end int64) ([]byte, error) {
	unlock, err := s.lock("getrange", dbIndex)
	if err != nil {
		return nil, err
	}
	defer unlock()

	v, ok := s.db.Get(dbIndex, key)
	s.track(ok)
	if !ok {
		return []byte{}, nil
	}
	return v.GetRange(start, end), nil
}

func (s *Store) SetRange(dbIndex uint32, key []byte, offset int64, val []byte) (int, error) {
	unlock, err := s.lock("setrange", dbIndex)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if offset < 0 {
		return 0, store.NewError(store.RetCInvalidOperation, "offset is out of range")
	}

	// an empty write neither creates nor pads the key
	if len(val) == 0 {
		if v, ok := s.db.Get(dbIndex, key); ok {
			return v.Len(), nil
		}
		return 0, nil
	}

	if err := s.checkSize(uint64(offset) + uint64(len(val))); err != nil {
		return 0, err
	}

	n, err := s.db.GetOrCreate(dbIndex, key).SetRange(uint64(offset), val)
	return n, toStoreError(err)
}

func (s *Store) StrLen(dbIndex uint32, key []byte) (int, error) {
	unlock, err := s.lock("strlen", dbIndex)
	if err != nil {
		return 0, err
	}
	defer unlock()

	v, ok := s.db.Get(dbIndex, key)
	s.track(ok)
	if !ok {
		return 0, nil
	}
	return v.Len(), nil
}

func (s *Store) Delete(dbIndex uint32, key []byte) (bool, error) {
	unlock, err := s.lock("del", dbIndex)
	if err != nil {
		return false, err
	}
	defer unlock()

	_, ok := s.db.Remove(dbIndex, key)
	return ok, nil
}

func (s *Store) Exists(dbIndex uint32, key []byte) (bool, error) {
	unlock, err := s.lock("exists", dbIndex)
	if err != nil {
		return false, err
	}
	defer unlock()

	_, ok := s.db.Get(dbIndex, key)
	s.track(ok)
	return ok, nil
}

func (s *Store) PExpireAt(dbIndex uint32, key []byte, atMs int64) (bool, error) {
	unlock, err := s.lock("pexpireat", dbIndex)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, ok := s.db.Get(dbIndex, key); !ok {
		return false, nil
	}
	s.db.SetMsExpiration(dbIndex, key, atMs)
	return true, nil
}

func (s *Store) PTTL(dbIndex uint32, key []byte) (int64, error) {
	unlock, err := s.lock("pttl", dbIndex)
	if err != nil {
		return 0, err
	}
	defer unlock()

	if _, ok := s.db.Get(dbIndex, key); !ok {
		return -2, nil
	}
	at, ok := s.db.Expiration(dbIndex, key)
	if !ok {
		return -1, nil
	}
	return at - s.db.Now(), nil
}

func (s *Store) Persist(dbIndex uint32, key []byte) (bool, error) {
	unlock, err := s.lock("persist", dbIndex)
	if err != nil {
		return false, err
	}
	defer unlock()

	return s.db.Persist(dbIndex, key), nil
}

func (s *Store) DBSize(dbIndex uint32) (int, error) {
	unlock, err := s.lock("dbsize", dbIndex)
	if err != nil {
		return 0, err
	}
	defer unlock()

	return s.db.DBSize(dbIndex), nil
}

func (s *Store) FlushDB(dbIndex uint32) error {
	unlock, err := s.lock("flushdb", dbIndex)
	if err != nil {
		return err
	}
	defer unlock()

	s.db.FlushDB(dbIndex)
	return nil
}

func (s *Store) FlushAll() error {
	s.metrics.GetOrCreateCounter(`rsedis_commands_total{cmd="flushall"}`).Inc()
	defer s.lockAll()()

	s.db.FlushAll()
	return nil
}

func (s *Store) GetDBInfo() (db.DatabaseInfo, error) {
	defer s.lockAll()()

	return s.db.GetInfo(), nil
}

// Close stops the active expire cycle. The store stays usable afterward.
func (s *Store) Close() error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	return nil
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

// WriteMetrics writes the store metrics in Prometheus text format
func (s *Store) WriteMetrics(w io.Writer) {
	s.metrics.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Active Expiration
// --------------------------------------------------------------------------

// activeExpire runs the active expire cycle for every database until Close
func (s *Store) activeExpire() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.ExpireCycle()
		}
	}
}

// ExpireCycle runs one active expire cycle over all databases and returns the number of
// removed keys. Each database is locked only while it is processed.
func (s *Store) ExpireCycle() int {
	total := 0
	for _, idx := range s.db.Indexes() {
		if idx >= s.config.Databases {
			continue
		}

		mu := &s.locks[idx]
		mu.Lock()
		removed := s.db.ActiveExpireCycle(idx, s.config.SweepBudget)
		mu.Unlock()

		if removed > 0 {
			plog.Debugf("active expire removed %d keys from db %d", removed, idx)
		}
		total += removed
	}
	return total
}
