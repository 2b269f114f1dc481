package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMediaQueueDropsWhenFull(t *testing.T) {
	q := NewMediaQueue(2)

	q.EnqueueMedia("/tmp/a.png", "one")
	q.EnqueueMedia("/tmp/b.png", "")
	q.EnqueueMedia("/tmp/c.png", "three")

	assert.Equal(t, int64(1), q.Dropped())
	assert.Equal(t, MediaItem{FilePath: "/tmp/a.png", Caption: "one"}, <-q.Items())
	assert.Equal(t, MediaItem{FilePath: "/tmp/b.png"}, <-q.Items())
}

func TestMediaSinkFunc(t *testing.T) {
	var got []MediaItem
	var sink MediaSink = MediaSinkFunc(func(filePath, caption string) {
		got = append(got, MediaItem{filePath, caption})
	})

	sink.EnqueueMedia("x.gif", "c")
	assert.Equal(t, []MediaItem{{"x.gif", "c"}}, got)
}
