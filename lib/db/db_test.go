package db_test

import (
	"testing"

	"github.com/XiaonuoGantan/rsedis/lib/db"
	dbtesting "github.com/XiaonuoGantan/rsedis/lib/db/testing"
	"github.com/XiaonuoGantan/rsedis/lib/db/util"
)

func newDatabase(clock util.Clock) *db.Database {
	return db.New(&db.Options{Clock: clock})
}

func Test(t *testing.T) {
	dbtesting.RunDatabaseTests(t, "Database", newDatabase)
}

func Benchmark(b *testing.B) {
	dbtesting.RunDatabaseBenchmarks(b, "Database", newDatabase)
}

func TestDefaultClock(t *testing.T) {
	database := db.New(nil)
	key := []byte("k")

	database.GetOrCreate(0, key).Set([]byte("v"))
	database.SetMsExpiration(0, key, util.MsTime()+10000)
	if _, ok := database.Get(0, key); !ok {
		t.Error("Key with expiration in 10s should be visible")
	}

	database.SetMsExpiration(0, key, util.MsTime())
	if _, ok := database.Get(0, key); ok {
		t.Error("Key expiring now should not be visible")
	}
}

func TestGetInfo(t *testing.T) {
	clock := util.NewManualClock(1000)
	database := newDatabase(clock.Now)

	database.GetOrCreate(0, []byte("a")).Set([]byte("1"))
	database.GetOrCreate(0, []byte("b")).Set([]byte("hello"))
	database.SetMsExpiration(0, []byte("b"), 3000)
	database.GetOrCreate(3, []byte("c")).Set([]byte("x"))
	database.SetMsExpiration(3, []byte("c"), 1000) // already expired
	database.GetOrCreate(5, []byte("d")).Append([]byte("y"))

	info := database.GetInfo()

	if len(info.Keyspaces) != 2 {
		t.Fatalf("Expected 2 non-empty keyspaces, got %+v", info.Keyspaces)
	}

	ks0 := info.Keyspaces[0]
	if ks0.Index != 0 || ks0.Keys != 2 || ks0.Expires != 1 || ks0.AvgTTL != 2000 {
		t.Errorf("Unexpected keyspace info for db 0: %+v", ks0)
	}

	ks5 := info.Keyspaces[1]
	if ks5.Index != 5 || ks5.Keys != 1 || ks5.Expires != 0 {
		t.Errorf("Unexpected keyspace info for db 5: %+v", ks5)
	}

	if info.SizeBytes <= 0 {
		t.Errorf("Expected a positive size estimate, got %d", info.SizeBytes)
	}
	if info.TTLStatistics.Max != 2000 {
		t.Errorf("Expected max ttl 2000, got %d", info.TTLStatistics.Max)
	}

	// GetInfo must not remove the expired entry
	if info.ExpiredKeys != 0 {
		t.Errorf("GetInfo must not expire keys, expired=%d", info.ExpiredKeys)
	}
	if removed := database.ActiveExpireCycle(3, 0); removed != 1 {
		t.Errorf("Expected the expired entry to still exist physically, removed=%d", removed)
	}
}

func TestEmptyInfo(t *testing.T) {
	info := db.New(nil).GetInfo()
	if info.SizeBytes != 0 || len(info.Keyspaces) != 0 {
		t.Errorf("Expected empty info, got %+v", info)
	}
}
