package lstore

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/XiaonuoGantan/rsedis/lib/common"
	"github.com/XiaonuoGantan/rsedis/lib/db"
	"github.com/XiaonuoGantan/rsedis/lib/db/util"
	"github.com/XiaonuoGantan/rsedis/lib/store"
)

// newTestStore creates a store without background expiration driven by a manual clock
func newTestStore(t *testing.T, modify func(c *common.EngineConfig)) (*Store, *util.ManualClock) {
	t.Helper()

	clock := util.NewManualClock(1_000_000)
	conf := common.DefaultEngineConfig()
	conf.SweepInterval = 0
	if modify != nil {
		modify(&conf)
	}

	s, err := NewLocalStore(func() *db.Database {
		return db.New(&db.Options{Clock: clock.Now})
	}, conf)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestSetGet(t *testing.T) {
	s, _ := newTestStore(t, nil)
	key := []byte("key")

	if _, ok, err := s.Get(0, key); ok || err != nil {
		t.Errorf("Expected absent key, got ok=%v err=%v", ok, err)
	}

	if err := s.Set(0, key, []byte("value")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, ok, err := s.Get(0, key)
	if err != nil || !ok || !bytes.Equal(val, []byte("value")) {
		t.Errorf("Expected value, got %q ok=%v err=%v", val, ok, err)
	}

	// the result is a copy
	val[0] = 'X'
	again, _, _ := s.Get(0, key)
	if !bytes.Equal(again, []byte("value")) {
		t.Errorf("Get should return a copy, stored value is now %q", again)
	}
}

func TestSetClearsExpiration(t *testing.T) {
	s, clock := newTestStore(t, nil)
	key := []byte("key")

	if err := s.SetPX(0, key, []byte("v"), clock.Now()+100); err != nil {
		t.Fatal(err)
	}
	if ttl, _ := s.PTTL(0, key); ttl != 100 {
		t.Errorf("Expected ttl 100, got %d", ttl)
	}

	_ = s.Set(0, key, []byte("w"))
	if ttl, _ := s.PTTL(0, key); ttl != -1 {
		t.Errorf("Set should remove the expiration, ttl=%d", ttl)
	}
}

func TestAppendAndStrLen(t *testing.T) {
	s, _ := newTestStore(t, nil)
	key := []byte("key")

	if l, err := s.Append(0, key, []byte("123")); err != nil || l != 3 {
		t.Errorf("Expected length 3, got %d (%v)", l, err)
	}
	if l, err := s.Append(0, key, []byte("45")); err != nil || l != 5 {
		t.Errorf("Expected length 5, got %d (%v)", l, err)
	}
	if l, _ := s.StrLen(0, key); l != 5 {
		t.Errorf("Expected strlen 5, got %d", l)
	}
	if l, _ := s.StrLen(0, []byte("missing")); l != 0 {
		t.Errorf("Expected strlen 0 for missing key, got %d", l)
	}
}

func TestIncrBy(t *testing.T) {
	s, _ := newTestStore(t, nil)
	key := []byte("counter")

	if n, err := s.IncrBy(0, key, 10); err != nil || n != 10 {
		t.Errorf("Expected 10, got %d (%v)", n, err)
	}
	if n, err := s.IncrBy(0, key, -15); err != nil || n != -5 {
		t.Errorf("Expected -5, got %d (%v)", n, err)
	}
	if val, _, _ := s.Get(0, key); string(val) != "-5" {
		t.Errorf("Expected stored -5, got %q", val)
	}

	_ = s.Set(0, key, []byte("not a number"))
	if _, err := s.IncrBy(0, key, 1); !store.IsCode(err, store.RetCNotAnInteger) {
		t.Errorf("Expected RetCNotAnInteger, got %v", err)
	}

	_ = s.Set(0, key, []byte(strconv.FormatInt(math.MaxInt64, 10)))
	if _, err := s.IncrBy(0, key, 1); !store.IsCode(err, store.RetCOutOfRange) {
		t.Errorf("Expected RetCOutOfRange, got %v", err)
	}
}

func TestRanges(t *testing.T) {
	s, _ := newTestStore(t, nil)
	key := []byte("key")

	_ = s.Set(0, key, []byte("123"))
	tests := []struct {
		start, end int64
		expected   string
	}{
		{0, -1, "123"},
		{-100, -2, "12"},
		{1, 1, "2"},
	}
	for _, tt := range tests {
		if got, _ := s.GetRange(0, key, tt.start, tt.end); string(got) != tt.expected {
			t.Errorf("GetRange(%d, %d): expected %q, got %q", tt.start, tt.end, tt.expected, got)
		}
	}

	if got, err := s.GetRange(0, []byte("missing"), 0, -1); err != nil || len(got) != 0 {
		t.Errorf("Expected empty range for missing key, got %q (%v)", got, err)
	}

	if l, err := s.SetRange(0, key, 5, []byte{'6'}); err != nil || l != 6 {
		t.Errorf("Expected length 6, got %d (%v)", l, err)
	}
	if val, _, _ := s.Get(0, key); !bytes.Equal(val, []byte{'1', '2', '3', 0, 0, '6'}) {
		t.Errorf("Unexpected value after SetRange: %q", val)
	}

	if _, err := s.SetRange(0, key, -1, []byte("x")); !store.IsCode(err, store.RetCInvalidOperation) {
		t.Errorf("Expected RetCInvalidOperation for negative offset, got %v", err)
	}
}

func TestSetRangeEmptyValue(t *testing.T) {
	s, _ := newTestStore(t, nil)

	if l, err := s.SetRange(0, []byte("missing"), 10, nil); err != nil || l != 0 {
		t.Errorf("Expected 0, got %d (%v)", l, err)
	}
	if ok, _ := s.Exists(0, []byte("missing")); ok {
		t.Error("Empty SetRange must not create the key")
	}
}

func TestMaxValueSize(t *testing.T) {
	s, _ := newTestStore(t, func(c *common.EngineConfig) { c.MaxValueBytes = 8 })
	key := []byte("key")

	if _, err := s.Append(0, key, []byte("12345678")); err != nil {
		t.Fatalf("Append within limit failed: %v", err)
	}
	if _, err := s.Append(0, key, []byte("9")); !store.IsCode(err, store.RetCValueTooLarge) {
		t.Errorf("Expected RetCValueTooLarge, got %v", err)
	}
	if _, err := s.SetRange(0, []byte("other"), 8, []byte("x")); !store.IsCode(err, store.RetCValueTooLarge) {
		t.Errorf("Expected RetCValueTooLarge, got %v", err)
	}
	if ok, _ := s.Exists(0, []byte("other")); ok {
		t.Error("Rejected SetRange must not create the key")
	}
}

func TestInvalidDBIndex(t *testing.T) {
	s, _ := newTestStore(t, func(c *common.EngineConfig) { c.Databases = 2 })

	if err := s.Set(2, []byte("k"), []byte("v")); !store.IsCode(err, store.RetCInvalidDBIndex) {
		t.Errorf("Expected RetCInvalidDBIndex, got %v", err)
	}
	if err := s.Set(1, []byte("k"), []byte("v")); err != nil {
		t.Errorf("Index 1 should be valid, got %v", err)
	}
}

func TestDeleteExistsAndExpire(t *testing.T) {
	s, clock := newTestStore(t, nil)
	key := []byte("key")

	if ok, _ := s.PExpireAt(0, key, clock.Now()+10); ok {
		t.Error("PExpireAt on a missing key should return false")
	}
	if ttl, _ := s.PTTL(0, key); ttl != -2 {
		t.Errorf("Expected ttl -2 for missing key, got %d", ttl)
	}

	_ = s.Set(0, key, []byte("v"))
	if ok, _ := s.PExpireAt(0, key, clock.Now()+10); !ok {
		t.Error("PExpireAt on an existing key should return true")
	}

	clock.Advance(5)
	if ttl, _ := s.PTTL(0, key); ttl != 5 {
		t.Errorf("Expected ttl 5, got %d", ttl)
	}

	clock.Advance(5)
	if ok, _ := s.Exists(0, key); ok {
		t.Error("Key should be expired")
	}
	if ok, _ := s.Delete(0, key); ok {
		t.Error("Delete of an expired key should return false")
	}

	_ = s.Set(0, key, []byte("v"))
	if ok, _ := s.Delete(0, key); !ok {
		t.Error("First delete should return true")
	}
	if ok, _ := s.Delete(0, key); ok {
		t.Error("Second delete should return false")
	}
}

func TestPersist(t *testing.T) {
	s, clock := newTestStore(t, nil)
	key := []byte("key")

	_ = s.SetPX(0, key, []byte("v"), clock.Now()+10)
	if ok, _ := s.Persist(0, key); !ok {
		t.Error("Persist should remove the expiration")
	}
	clock.Advance(100)
	if ok, _ := s.Exists(0, key); !ok {
		t.Error("Persisted key should not expire")
	}
}

func TestFlushAndDBSize(t *testing.T) {
	s, _ := newTestStore(t, nil)

	for i := uint32(0); i < 3; i++ {
		for j := 0; j < 5; j++ {
			_ = s.Set(i, []byte(fmt.Sprintf("key-%d", j)), []byte("v"))
		}
	}

	if size, _ := s.DBSize(1); size != 5 {
		t.Errorf("Expected 5 keys, got %d", size)
	}
	_ = s.FlushDB(1)
	if size, _ := s.DBSize(1); size != 0 {
		t.Errorf("Expected 0 keys after FlushDB, got %d", size)
	}
	if size, _ := s.DBSize(0); size != 5 {
		t.Errorf("FlushDB must not touch db 0, got %d keys", size)
	}

	_ = s.FlushAll()
	info, _ := s.GetDBInfo()
	if len(info.Keyspaces) != 0 {
		t.Errorf("Expected no keyspaces after FlushAll, got %+v", info.Keyspaces)
	}
}

func TestExpireCycle(t *testing.T) {
	s, clock := newTestStore(t, func(c *common.EngineConfig) { c.SweepBudget = 2 })

	for i := 0; i < 5; i++ {
		_ = s.SetPX(0, []byte(fmt.Sprintf("key-%d", i)), []byte("v"), clock.Now()+1)
	}
	_ = s.SetPX(3, []byte("other"), []byte("v"), clock.Now()+1)
	clock.Advance(1)

	// budget 2 per db -> 2 from db 0 and 1 from db 3
	if removed := s.ExpireCycle(); removed != 3 {
		t.Errorf("Expected 3 removed keys, got %d", removed)
	}
	if removed := s.ExpireCycle(); removed != 2 {
		t.Errorf("Expected 2 removed keys, got %d", removed)
	}
	if removed := s.ExpireCycle(); removed != 1 {
		t.Errorf("Expected 1 removed key, got %d", removed)
	}

	info, _ := s.GetDBInfo()
	if info.ExpiredKeys != 6 {
		t.Errorf("Expected 6 expired keys, got %d", info.ExpiredKeys)
	}
}

func TestBackgroundExpiration(t *testing.T) {
	conf := common.DefaultEngineConfig()
	conf.SweepInterval = 5 * time.Millisecond

	s, err := NewLocalStore(func() *db.Database { return db.New(nil) }, conf)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_ = s.SetPX(0, []byte("key"), []byte("v"), util.MsTime()-1)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if info, _ := s.GetDBInfo(); info.ExpiredKeys == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("Background expiration did not remove the key")
}

func TestConcurrentIncr(t *testing.T) {
	s, _ := newTestStore(t, nil)
	key := []byte("counter")

	var wg sync.WaitGroup
	workers, perWorker := 8, 500
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.IncrBy(0, key, 1); err != nil {
					t.Errorf("IncrBy failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	val, _, _ := s.Get(0, key)
	if string(val) != strconv.Itoa(workers*perWorker) {
		t.Errorf("Expected %d, got %q", workers*perWorker, val)
	}
}

func TestMetrics(t *testing.T) {
	s, _ := newTestStore(t, nil)

	_ = s.Set(0, []byte("key"), []byte("v"))
	_, _, _ = s.Get(0, []byte("key"))
	_, _, _ = s.Get(0, []byte("missing"))

	var buf bytes.Buffer
	s.WriteMetrics(&buf)
	out := buf.String()

	for _, expected := range []string{
		"rsedis_keyspace_hits_total 1",
		"rsedis_keyspace_misses_total 1",
		`rsedis_commands_total{cmd="get"} 2`,
		"rsedis_expired_keys 0",
	} {
		if !strings.Contains(out, expected) {
			t.Errorf("Expected metrics to contain %q:\n%s", expected, out)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	conf := common.DefaultEngineConfig()
	conf.Databases = 0
	if _, err := NewLocalStore(func() *db.Database { return db.New(nil) }, conf); err == nil {
		t.Error("Expected error for invalid config")
	}
}
