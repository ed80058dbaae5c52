package db

import (
	"github.com/XiaonuoGantan/rsedis/lib/db/internal"
	"github.com/XiaonuoGantan/rsedis/lib/db/util"
)

// --------------------------------------------------------------------------
// Info Types
// --------------------------------------------------------------------------

// KeyspaceInfo describes one database index, similar to the keyspace section of INFO
type KeyspaceInfo struct {
	Index   uint32 `json:"index"`
	Keys    int    `json:"keys"`    // Visible keys
	Expires int    `json:"expires"` // Visible keys with an expiration
	AvgTTL  int64  `json:"avg_ttl"` // Average remaining ttl (ms) of expiring keys
}

// DatabaseInfo is a snapshot of the database state.
// SizeBytes and the value size statistics are estimated from a sample.
type DatabaseInfo struct {
	SizeBytes     int            `json:"size_bytes"`
	Keyspaces     []KeyspaceInfo `json:"keyspaces"`
	ExpiredKeys   uint64         `json:"expired_keys"`
	ValueSizeP50  int            `json:"value_size_p50"`
	ValueSizeP99  int            `json:"value_size_p99"`
	TTLStatistics util.Summary   `json:"ttl_statistics"`
}

// samplesPerKeyspace limits how many entries per keyspace are used for size estimation
const samplesPerKeyspace = 100

// entryOverhead is the estimated bookkeeping cost per entry (map slot, value header, key header)
const entryOverhead = 64

// GetInfo collects statistics about all keyspaces.
// Like Get, it only inspects state and never removes expired entries.
//
// Thread-safety: The caller must serialize GetInfo with writes to every database index.
func (d *Database) GetInfo() DatabaseInfo {
	now := d.clock()
	histogram := util.NewSizeHistogram()
	ttls := make([]int64, 0)

	info := DatabaseInfo{
		Keyspaces:   make([]KeyspaceInfo, 0),
		ExpiredKeys: d.expiredKeys.Load(),
	}

	totalKeys := 0
	for _, idx := range d.Indexes() {
		ks, ok := d.keyspaces.Load(idx)
		if !ok {
			continue
		}

		ksInfo := keyspaceInfo(idx, ks, now, &ttls)
		if ksInfo.Keys == 0 {
			continue
		}
		info.Keyspaces = append(info.Keyspaces, ksInfo)
		totalKeys += ksInfo.Keys

		// sample value sizes
		count := 0
		for key, v := range ks.Entries {
			if ks.IsExpired(key, now) {
				continue
			}
			histogram.Add(len(key) + v.Len())
			count++
			if count >= samplesPerKeyspace {
				break
			}
		}
	}

	// weighted estimate (60% median, 40% average)
	perEntry := (histogram.Percentile(50)*60+histogram.Mean()*40)/100 + entryOverhead
	if totalKeys > 0 {
		info.SizeBytes = perEntry * totalKeys
	}
	info.ValueSizeP50 = histogram.Percentile(50)
	info.ValueSizeP99 = histogram.Percentile(99)
	info.TTLStatistics = util.NewSummary(ttls)

	return info
}

// keyspaceInfo counts visible keys and expirations of one keyspace and appends the
// remaining ttl of every expiring key to ttls
func keyspaceInfo(idx uint32, ks *internal.Keyspace, now int64, ttls *[]int64) KeyspaceInfo {
	info := KeyspaceInfo{Index: idx, Keys: len(ks.Entries)}

	var ttlSum int64
	ks.Expires.Range(func(key string, at int64) bool {
		if _, exists := ks.Entries[key]; !exists {
			return true
		}
		if at <= now {
			info.Keys--
			return true
		}
		info.Expires++
		ttlSum += at - now
		*ttls = append(*ttls, at-now)
		return true
	})

	if info.Expires > 0 {
		info.AvgTTL = ttlSum / int64(info.Expires)
	}
	return info
}
