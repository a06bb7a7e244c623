package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(4)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TaskCreated, "42", "", map[string]string{"title": "x"})

	ev := <-ch
	assert.Equal(t, TaskCreated, ev.Type)
	assert.Equal(t, "42", ev.ResourceID)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "x", ev.Metadata["title"])
}

func TestSubscribeFiltersByType(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(4, TaskAssigned)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TaskCreated, "1", "", nil)
	bus.PublishNew(TaskAssigned, "1", "", nil)

	ev := <-ch
	assert.Equal(t, TaskAssigned, ev.Type)
	assert.Empty(t, ch)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)

	bus.PublishNew(TaskUpdated, "1", "", nil)
	bus.PublishNew(TaskUpdated, "2", "", nil)

	bus.Unsubscribe(id)
	var got []string
	for ev := range ch {
		got = append(got, ev.ResourceID)
	}
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0])
}
