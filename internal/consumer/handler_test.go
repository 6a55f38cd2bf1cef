package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"ProjectHub/internal/model"

	"github.com/stretchr/testify/require"
)

// mockRepo накапливает отправленные пакеты событий
type mockRepo struct {
	batches [][]model.Event
	err     error
}

func (m *mockRepo) BatchInsertEvents(ctx context.Context, events []model.Event) error {
	m.batches = append(m.batches, events)
	return m.err
}

func marshalEvent(t *testing.T, ev model.Event) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

// TestHandleMessage_Batching: пакет уходит только при достижении batchSize
func TestHandleMessage_Batching(t *testing.T) {
	repo := &mockRepo{}
	c := NewConsumer(repo, 3)
	ctx := context.Background()

	events := []model.Event{
		{Entity: "project", Action: "created", EntityID: 1, ProjectID: 1},
		{Entity: "task", Action: "created", EntityID: 101, ProjectID: 1},
		{Entity: "task", Action: "moved", EntityID: 101, ProjectID: 1},
	}
	for i, ev := range events[:2] {
		require.NoError(t, c.HandleMessage(ctx, marshalEvent(t, ev)))
		require.Len(t, repo.batches, 0, "batch must not be sent after %d events", i+1)
	}
	require.NoError(t, c.HandleMessage(ctx, marshalEvent(t, events[2])))
	require.Len(t, repo.batches, 1)
	require.Len(t, repo.batches[0], 3)
	require.Equal(t, "moved", repo.batches[0][2].Action)

	// буфер очищен, следующее событие снова копится
	require.NoError(t, c.HandleMessage(ctx, marshalEvent(t, events[0])))
	require.Len(t, repo.batches, 1)
}

// TestHandleMessage_BadPayload: битый JSON — ошибка без изменения буфера
func TestHandleMessage_BadPayload(t *testing.T) {
	repo := &mockRepo{}
	c := NewConsumer(repo, 1)

	err := c.HandleMessage(context.Background(), []byte("not-json"))
	require.Error(t, err)
	require.Len(t, repo.batches, 0)
}

// TestFlush: остаток буфера уходит по требованию, пустой буфер — no-op
func TestFlush(t *testing.T) {
	repo := &mockRepo{}
	c := NewConsumer(repo, 10)
	ctx := context.Background()

	require.NoError(t, c.Flush(ctx))
	require.Len(t, repo.batches, 0)

	ev := model.Event{Entity: "member", Action: "invited", EntityID: 201}
	require.NoError(t, c.HandleMessage(ctx, marshalEvent(t, ev)))
	require.NoError(t, c.Flush(ctx))
	require.Len(t, repo.batches, 1)
	require.Len(t, repo.batches[0], 1)
	require.Equal(t, "invited", repo.batches[0][0].Action)

	// повторный Flush после отправки не шлет пустой пакет
	require.NoError(t, c.Flush(ctx))
	require.Len(t, repo.batches, 1)
}
