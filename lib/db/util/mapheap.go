// Package util
//
// This file provides a priority queue with key based access used as the expiration index
// of a keyspace.
//
// The implementation combines a binary heap with a hash map:
//   - O(log n) for priority operations (AddItem, Pop, RemoveByKey)
//   - O(1) for key-based lookups (GetByKey)
//   - Peek returns the entry with the lowest priority (the earliest deadline)
//
// This way a single structure answers both "when does key k expire?" and
// "which key expires next?", which is what lazy and active expiration need.
//
// Note: This implementation is not thread-safe. For concurrent use, external
// synchronization should be applied.
//
// Example usage:
//
//	expires := NewMapHeap[string]()
//	expires.AddItem("session:1", 1700000000000)
//	expires.AddItem("session:2", 1600000000000)
//
//	// Get the next key to expire
//	next, at, exists := expires.Peek() // session:2, 1600000000000, true
//
//	// Forget a key (e.g. on PERSIST)
//	expires.RemoveByKey("session:1")
package util

import (
	"container/heap"
)

// item represents an entry of the queue
type item[K comparable] struct {
	Key      K     // Unique identifier for the item
	Priority int64 // Priority used for ordering in the heap (lower first)
	index    int   // Index in the heap, maintained by the heap package
}

// MapHeap implements a min priority queue with key-based access
type MapHeap[K comparable] struct {
	items    []*item[K]     // The actual heap slice
	itemsMap map[K]*item[K] // Map for O(1) access by key
}

// NewMapHeap creates a new, empty queue
func NewMapHeap[K comparable]() *MapHeap[K] {
	return &MapHeap[K]{
		items:    make([]*item[K], 0),
		itemsMap: make(map[K]*item[K]),
	}
}

// Len returns the number of items in the queue (part of heap.Interface)
func (mh *MapHeap[K]) Len() int { return len(mh.items) }

// Less compares items by priority (part of heap.Interface)
func (mh *MapHeap[K]) Less(i, j int) bool {
	return mh.items[i].Priority < mh.items[j].Priority
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (mh *MapHeap[K]) Swap(i, j int) {
	mh.items[i], mh.items[j] = mh.items[j], mh.items[i]
	mh.items[i].index = i
	mh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface, use AddItem instead)
func (mh *MapHeap[K]) Push(x any) {
	n := len(mh.items)
	it := x.(*item[K])
	it.index = n
	mh.items = append(mh.items, it)
	mh.itemsMap[it.Key] = it
}

// Pop removes and returns the last item (part of heap.Interface, use PopMin instead)
func (mh *MapHeap[K]) Pop() any {
	old := mh.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // Avoid memory leak
	it.index = -1
	mh.items = old[:n-1]
	delete(mh.itemsMap, it.Key)
	return it
}

// AddItem adds a new item to the queue or updates the priority of an existing one
func (mh *MapHeap[K]) AddItem(key K, priority int64) {
	if it, exists := mh.itemsMap[key]; exists {
		it.Priority = priority
		heap.Fix(mh, it.index)
		return
	}

	heap.Push(mh, &item[K]{
		Key:      key,
		Priority: priority,
	})
}

// RemoveByKey removes an item by its key and returns its priority
func (mh *MapHeap[K]) RemoveByKey(key K) (int64, bool) {
	it, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}

	heap.Remove(mh, it.index)
	return it.Priority, true
}

// Peek returns the key and priority of the minimum item without removing it
func (mh *MapHeap[K]) Peek() (K, int64, bool) {
	if len(mh.items) == 0 {
		var zero K
		return zero, 0, false
	}
	return mh.items[0].Key, mh.items[0].Priority, true
}

// PopMin removes and returns the minimum item
func (mh *MapHeap[K]) PopMin() (K, int64, bool) {
	if len(mh.items) == 0 {
		var zero K
		return zero, 0, false
	}
	it := heap.Pop(mh).(*item[K])
	return it.Key, it.Priority, true
}

// GetByKey returns the priority stored for a key
func (mh *MapHeap[K]) GetByKey(key K) (int64, bool) {
	it, exists := mh.itemsMap[key]
	if !exists {
		return 0, false
	}
	return it.Priority, true
}

// Range calls fn for every item in unspecified order until fn returns false
func (mh *MapHeap[K]) Range(fn func(key K, priority int64) bool) {
	for _, it := range mh.items {
		if !fn(it.Key, it.Priority) {
			return
		}
	}
}
