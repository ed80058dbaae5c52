package testing

import (
	"fmt"
	"testing"

	"github.com/XiaonuoGantan/rsedis/lib/db/util"
)

// RunDatabaseBenchmarks runs all benchmarks for a Database
func RunDatabaseBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, newSubject(factory))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, newSubject(factory))
		})

		b.Run("GetWithExpiry", func(b *testing.B) {
			benchmarkGetWithExpiry(b, newSubject(factory))
		})

		b.Run("Incr", func(b *testing.B) {
			benchmarkIncr(b, newSubject(factory))
		})

		b.Run("Append", func(b *testing.B) {
			benchmarkAppend(b, newSubject(factory))
		})

		b.Run("ActiveExpire", func(b *testing.B) {
			benchmarkActiveExpire(b, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkKeys(n int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("test-key-%d", i))
	}
	return keys
}

func benchmarkSet(b *testing.B, s subject) {
	keys := benchmarkKeys(10000)
	payload := []byte("test-value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.database.GetOrCreate(0, keys[i%len(keys)]).Set(payload)
	}
}

func benchmarkGet(b *testing.B, s subject) {
	keys := benchmarkKeys(10000)
	for _, key := range keys {
		s.database.GetOrCreate(0, key).Set(key)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.database.Get(0, keys[i%len(keys)])
	}
}

func benchmarkGetWithExpiry(b *testing.B, s subject) {
	keys := benchmarkKeys(10000)
	for i, key := range keys {
		s.database.GetOrCreate(0, key).Set(key)
		s.database.SetMsExpiration(0, key, s.clock.Now()+int64(i%2)*1_000_000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.database.Get(0, keys[i%len(keys)])
	}
}

func benchmarkIncr(b *testing.B, s subject) {
	key := []byte("counter")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.database.GetOrCreate(0, key).Incr(1)
	}
}

func benchmarkAppend(b *testing.B, s subject) {
	keys := benchmarkKeys(100)
	payload := []byte("x")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.database.GetOrCreate(0, keys[i%len(keys)]).Append(payload)
	}
}

func benchmarkActiveExpire(b *testing.B, factory DBFactory) {
	clock := util.NewManualClock(startTime)
	database := factory(clock.Now)
	keys := benchmarkKeys(b.N)
	for i, key := range keys {
		database.GetOrCreate(0, key).Set(key)
		database.SetMsExpiration(0, key, startTime+int64(i))
	}
	clock.Advance(int64(b.N))

	b.ResetTimer()
	for removed := 0; removed < b.N; {
		removed += database.ActiveExpireCycle(0, 20)
	}
}
