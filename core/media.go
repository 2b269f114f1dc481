package core

import "sync/atomic"

// MediaSink consumes files as they land in the receive directory.
type MediaSink interface {
	EnqueueMedia(filePath, caption string)
}

// MediaSinkFunc adapts a function to MediaSink.
type MediaSinkFunc func(filePath, caption string)

func (f MediaSinkFunc) EnqueueMedia(filePath, caption string) {
	f(filePath, caption)
}

type MediaItem struct {
	FilePath string
	Caption  string
}

// MediaQueue is a buffered channel sink. When the buffer is full new items are dropped;
// the file itself stays on disk.
type MediaQueue struct {
	items   chan MediaItem
	dropped atomic.Int64
}

func NewMediaQueue(size int) *MediaQueue {
	return &MediaQueue{items: make(chan MediaItem, size)}
}

func (q *MediaQueue) EnqueueMedia(filePath, caption string) {
	select {
	case q.items <- MediaItem{FilePath: filePath, Caption: caption}:
	default:
		q.dropped.Add(1)
	}
}

func (q *MediaQueue) Items() <-chan MediaItem {
	return q.items
}

func (q *MediaQueue) Dropped() int64 {
	return q.dropped.Load()
}
