package testing

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"testing"

	"github.com/XiaonuoGantan/rsedis/lib/db"
	"github.com/XiaonuoGantan/rsedis/lib/db/util"
	"github.com/XiaonuoGantan/rsedis/lib/value"
)

// DBFactory creates a new, empty Database that reads time from the given clock
type DBFactory func(clock util.Clock) *db.Database

// startTime is the initial time of the manual clock used by the suite
const startTime int64 = 1_700_000_000_000

// RunDatabaseTests runs the test suite for a Database.
func RunDatabaseTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, newSubject(factory))
		})

		t.Run("GetEmpty", func(t *testing.T) {
			testGetEmpty(t, newSubject(factory))
		})

		t.Run("AppendAppendGet", func(t *testing.T) {
			testAppendAppendGet(t, newSubject(factory))
		})

		t.Run("Numbers", func(t *testing.T) {
			testNumbers(t, newSubject(factory))
		})

		t.Run("Incr", func(t *testing.T) {
			testIncr(t, newSubject(factory))
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, newSubject(factory))
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, newSubject(factory))
		})

		t.Run("ExpiredGetOrCreate", func(t *testing.T) {
			testExpiredGetOrCreate(t, newSubject(factory))
		})

		t.Run("ExpirationWithoutEntry", func(t *testing.T) {
			testExpirationWithoutEntry(t, newSubject(factory))
		})

		t.Run("Persist", func(t *testing.T) {
			testPersist(t, newSubject(factory))
		})

		t.Run("DatabasesAreIndependent", func(t *testing.T) {
			testDatabasesAreIndependent(t, newSubject(factory))
		})

		t.Run("Flush", func(t *testing.T) {
			testFlush(t, newSubject(factory))
		})

		t.Run("ActiveExpire", func(t *testing.T) {
			testActiveExpire(t, newSubject(factory))
		})

		t.Run("ManyKeys", func(t *testing.T) {
			testManyKeys(t, newSubject(factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

type subject struct {
	database *db.Database
	clock    *util.ManualClock
}

func newSubject(factory DBFactory) subject {
	clock := util.NewManualClock(startTime)
	return subject{
		database: factory(clock.Now),
		clock:    clock,
	}
}

// requireValue fails the test if key is not visible with the expected value
func requireValue(t *testing.T, database *db.Database, dbIndex uint32, key []byte, expected value.Value) {
	t.Helper()

	v, ok := database.Get(dbIndex, key)
	if !ok {
		t.Fatalf("Expected key %q to exist in db %d", key, dbIndex)
	}
	if !v.Equal(&expected) {
		t.Errorf("Expected %s, got %s", &expected, v)
	}
}

// requireAbsent fails the test if key is visible
func requireAbsent(t *testing.T, database *db.Database, dbIndex uint32, key []byte) {
	t.Helper()

	if v, ok := database.Get(dbIndex, key); ok {
		t.Errorf("Expected key %q to be absent in db %d, got %s", key, dbIndex, v)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s subject) {
	key := []byte{1}

	s.database.GetOrCreate(0, key).Set([]byte{1, 2, 3, 4})
	requireValue(t, s.database, 0, key, value.Data([]byte{1, 2, 3, 4}))

	s.database.GetOrCreate(0, key).Set([]byte{0, 0, 0})
	s.database.GetOrCreate(0, key).Set([]byte{1, 2, 3, 4})
	requireValue(t, s.database, 0, key, value.Data([]byte{1, 2, 3, 4}))

	// a fresh key is materialized as Nil
	fresh := s.database.GetOrCreate(0, []byte("fresh"))
	if fresh.Kind() != value.KindNil {
		t.Errorf("Expected new key to be Nil, got %s", fresh)
	}
	requireValue(t, s.database, 0, []byte("fresh"), value.Nil())
}

func testGetEmpty(t *testing.T, s subject) {
	requireAbsent(t, s.database, 0, []byte{1})

	// reading must not materialize anything
	if size := s.database.DBSize(0); size != 0 {
		t.Errorf("Expected empty database, got size %d", size)
	}
	if len(s.database.Indexes()) != 0 {
		t.Errorf("Get must not create keyspaces, got %v", s.database.Indexes())
	}
}

func testAppendAppendGet(t *testing.T, s subject) {
	key := []byte{1}

	if l := s.database.GetOrCreate(0, key).Append([]byte{0, 0, 0}); l != 3 {
		t.Errorf("Expected length 3, got %d", l)
	}
	if l := s.database.GetOrCreate(0, key).Append([]byte{1, 2, 3, 4}); l != 7 {
		t.Errorf("Expected length 7, got %d", l)
	}
	requireValue(t, s.database, 0, key, value.Data([]byte{0, 0, 0, 1, 2, 3, 4}))
}

func testNumbers(t *testing.T, s subject) {
	key := []byte{1}

	s.database.GetOrCreate(0, key).Set([]byte("123"))
	requireValue(t, s.database, 0, key, value.Integer(123))

	if l := s.database.GetOrCreate(0, key).Append([]byte("asd")); l != 6 {
		t.Errorf("Expected length 6, got %d", l)
	}
	requireValue(t, s.database, 0, key, value.Data([]byte("123asd")))
}

func testIncr(t *testing.T, s subject) {
	key := []byte{1}

	s.database.GetOrCreate(0, key).Set([]byte("123"))
	if n, err := s.database.GetOrCreate(0, key).Incr(1); err != nil || n != 124 {
		t.Errorf("Expected 124, got %d (%v)", n, err)
	}
	requireValue(t, s.database, 0, key, value.Integer(124))

	created := []byte{2}
	if n, err := s.database.GetOrCreate(0, created).Incr(124); err != nil || n != 124 {
		t.Errorf("Expected 124, got %d (%v)", n, err)
	}
	if n, err := s.database.GetOrCreate(0, created).Incr(1); err != nil || n != 125 {
		t.Errorf("Expected 125, got %d (%v)", n, err)
	}
	requireValue(t, s.database, 0, created, value.Integer(125))

	overflow := []byte{3}
	s.database.GetOrCreate(0, overflow).Set([]byte(strconv.FormatInt(math.MaxInt64, 10)))
	if _, err := s.database.GetOrCreate(0, overflow).Incr(1); !errors.Is(err, value.ErrOutOfRange) {
		t.Errorf("Expected ErrOutOfRange, got %v", err)
	}
	requireValue(t, s.database, 0, overflow, value.Integer(math.MaxInt64))
}

func testRemove(t *testing.T, s subject) {
	key := []byte{1}

	s.database.GetOrCreate(0, key).Set([]byte{1, 2, 3, 4})
	old, ok := s.database.Remove(0, key)
	if !ok {
		t.Fatal("First remove should return the previous value")
	}
	expected := value.Data([]byte{1, 2, 3, 4})
	if !old.Equal(&expected) {
		t.Errorf("Expected %s, got %s", &expected, old)
	}

	if _, ok := s.database.Remove(0, key); ok {
		t.Error("Second remove should report the key as absent")
	}
	requireAbsent(t, s.database, 0, key)

	if _, ok := s.database.Remove(7, key); ok {
		t.Error("Remove on an unknown database should report the key as absent")
	}
}

func testExpire(t *testing.T, s subject) {
	key := []byte{1}
	s.database.GetOrCreate(0, key).Set([]byte{1, 2, 3, 4})

	// expiration in the future keeps the value visible
	s.database.SetMsExpiration(0, key, s.clock.Now()+10000)
	requireValue(t, s.database, 0, key, value.Data([]byte{1, 2, 3, 4}))

	if at, ok := s.database.Expiration(0, key); !ok || at != startTime+10000 {
		t.Errorf("Expected expiration %d, got %d (%v)", startTime+10000, at, ok)
	}

	s.clock.Advance(9999)
	requireValue(t, s.database, 0, key, value.Data([]byte{1, 2, 3, 4}))

	// at the deadline the key is gone
	s.clock.Advance(1)
	requireAbsent(t, s.database, 0, key)
	if _, ok := s.database.Expiration(0, key); ok {
		t.Error("Expired key should not report an expiration")
	}

	// removing an expired key reports it as absent
	if _, ok := s.database.Remove(0, key); ok {
		t.Error("Remove of an expired key should report it as absent")
	}

	// expiring right now hides immediately
	other := []byte{2}
	s.database.GetOrCreate(0, other).Set([]byte("x"))
	s.database.SetMsExpiration(0, other, s.clock.Now())
	requireAbsent(t, s.database, 0, other)

	// a past timestamp as well
	past := []byte{3}
	s.database.GetOrCreate(0, past).Set([]byte("x"))
	s.database.SetMsExpiration(0, past, s.clock.Now()-1000)
	requireAbsent(t, s.database, 0, past)

	if size := s.database.DBSize(0); size != 0 {
		t.Errorf("Expected 0 visible keys, got %d", size)
	}
}

func testExpiredGetOrCreate(t *testing.T, s subject) {
	key := []byte("k")
	s.database.GetOrCreate(0, key).Set([]byte("old"))
	s.database.SetMsExpiration(0, key, s.clock.Now()+10)
	s.clock.Advance(10)

	v := s.database.GetOrCreate(0, key)
	if v.Kind() != value.KindNil {
		t.Errorf("Expected expired key to be recreated as Nil, got %s", v)
	}

	// the stale expiration must be gone
	s.clock.Advance(1000)
	requireValue(t, s.database, 0, key, value.Nil())
	if _, ok := s.database.Expiration(0, key); ok {
		t.Error("Recreated key should not have an expiration")
	}

	if s.database.ExpiredKeys() != 1 {
		t.Errorf("Expected 1 expired key, got %d", s.database.ExpiredKeys())
	}
}

func testExpirationWithoutEntry(t *testing.T, s subject) {
	key := []byte("ghost")

	s.database.SetMsExpiration(0, key, s.clock.Now()+1000)
	requireAbsent(t, s.database, 0, key)

	// creating the key clears the stale expiration
	s.database.GetOrCreate(0, key).Set([]byte("1"))
	s.clock.Advance(2000)
	requireValue(t, s.database, 0, key, value.Integer(1))
}

func testPersist(t *testing.T, s subject) {
	key := []byte("k")
	s.database.GetOrCreate(0, key).Set([]byte("v"))

	if s.database.Persist(0, key) {
		t.Error("Persist without expiration should return false")
	}

	s.database.SetMsExpiration(0, key, s.clock.Now()+100)
	if !s.database.Persist(0, key) {
		t.Error("Persist should remove the expiration")
	}

	s.clock.Advance(200)
	requireValue(t, s.database, 0, key, value.Data([]byte("v")))

	s.database.SetMsExpiration(0, key, s.clock.Now())
	if s.database.Persist(0, key) {
		t.Error("Persist must not revive an expired key")
	}
	requireAbsent(t, s.database, 0, key)
}

func testDatabasesAreIndependent(t *testing.T, s subject) {
	key := []byte("shared")

	s.database.GetOrCreate(0, key).Set([]byte("zero"))
	s.database.GetOrCreate(1, key).Set([]byte("one"))
	s.database.SetMsExpiration(1, key, s.clock.Now())

	requireValue(t, s.database, 0, key, value.Data([]byte("zero")))
	requireAbsent(t, s.database, 1, key)
	requireAbsent(t, s.database, 2, key)

	indexes := s.database.Indexes()
	if len(indexes) != 2 || indexes[0] != 0 || indexes[1] != 1 {
		t.Errorf("Expected indexes [0 1], got %v", indexes)
	}
}

func testFlush(t *testing.T, s subject) {
	for i := uint32(0); i < 3; i++ {
		s.database.GetOrCreate(i, []byte("a")).Set([]byte("1"))
		s.database.GetOrCreate(i, []byte("b")).Set([]byte("2"))
	}

	s.database.FlushDB(1)
	if s.database.DBSize(1) != 0 {
		t.Errorf("Expected db 1 to be empty, got %d keys", s.database.DBSize(1))
	}
	if s.database.DBSize(0) != 2 || s.database.DBSize(2) != 2 {
		t.Error("FlushDB must not touch other databases")
	}

	s.database.FlushAll()
	for i := uint32(0); i < 3; i++ {
		requireAbsent(t, s.database, i, []byte("a"))
	}
}

func testActiveExpire(t *testing.T, s subject) {
	for i := 0; i < 10; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		s.database.GetOrCreate(0, key).Set([]byte("v"))
		s.database.SetMsExpiration(0, key, s.clock.Now()+int64(i))
	}
	// an expiration without an entry is discarded without being counted
	s.database.SetMsExpiration(0, []byte("ghost"), s.clock.Now())

	s.clock.Advance(4) // key-0 .. key-4 expired

	if removed := s.database.ActiveExpireCycle(0, 3); removed != 3 {
		t.Errorf("Expected 3 removed keys with budget 3, got %d", removed)
	}
	if removed := s.database.ActiveExpireCycle(0, 0); removed != 2 {
		t.Errorf("Expected 2 remaining expired keys, got %d", removed)
	}
	if removed := s.database.ActiveExpireCycle(0, 0); removed != 0 {
		t.Errorf("Expected nothing left to expire, got %d", removed)
	}

	if size := s.database.DBSize(0); size != 5 {
		t.Errorf("Expected 5 keys left, got %d", size)
	}
	if s.database.ExpiredKeys() != 5 {
		t.Errorf("Expected 5 expired keys, got %d", s.database.ExpiredKeys())
	}
	if removed := s.database.ActiveExpireCycle(9, 0); removed != 0 {
		t.Errorf("Unknown database should expire nothing, got %d", removed)
	}
}

func testManyKeys(t *testing.T, s subject) {
	numKeys := 1000

	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		s.database.GetOrCreate(0, key).Set([]byte(strconv.Itoa(i)))
	}
	for i := 0; i < numKeys; i += 2 {
		s.database.Remove(0, []byte(fmt.Sprintf("key-%d", i)))
	}

	for i := 0; i < numKeys; i++ {
		key := []byte(fmt.Sprintf("key-%d", i))
		v, ok := s.database.Get(0, key)
		if i%2 == 0 {
			if ok {
				t.Errorf("Key %s should be removed", key)
			}
			continue
		}
		if !ok {
			t.Errorf("Key %s not found", key)
			continue
		}
		if !bytes.Equal(v.Bytes(), []byte(strconv.Itoa(i))) {
			t.Errorf("Value for key %s does not match: got %s", key, v)
		}
	}

	if size := s.database.DBSize(0); size != numKeys/2 {
		t.Errorf("Expected %d keys, got %d", numKeys/2, size)
	}
}
