package task

import (
	"Gallery_Manager/internal/models"
	"Gallery_Manager/internal/testutil"
	"Gallery_Manager/pkg/deletion"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeleter struct {
	seen []models.MediaItem
}

func (f *fakeDeleter) RequestDeletion(ctx context.Context, items []models.MediaItem, n deletion.Notifier) models.BatchOutcome {
	f.seen = items
	n.Notify(deletion.Event{Kind: deletion.EventProgress, GroupsDone: 1, GroupsTotal: 2, Processed: 1, Total: len(items)})
	n.Notify(deletion.Event{Kind: deletion.EventProgress, GroupsDone: 2, GroupsTotal: 2, Processed: 1, Failed: 1, Total: len(items)})
	return models.BatchOutcome{Processed: 1, Failed: 1, Total: len(items)}
}

func TestDeletionTaskCompletes(t *testing.T) {
	d := &fakeDeleter{}
	m := NewManager(d)
	items := testutil.Items(testutil.Doc("a", "/travel_media/a.jpg"), testutil.Doc("b", "/travel_media/b.jpg"))

	id, err := m.StartDeletionTask(items)
	require.NoError(t, err)
	m.Wait()

	task, err := m.GetTaskStatus(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, 100.0, task.Progress)
	assert.Equal(t, 1, task.Processed)
	assert.Equal(t, 1, task.Failed)
	assert.Equal(t, 2, task.Total)
	require.NotNil(t, task.Outcome)
	require.NotNil(t, task.EndTime)
	assert.Nil(t, task.items)
	assert.Len(t, d.seen, 2)
}

func TestStartDeletionTaskRejectsEmptySelection(t *testing.T) {
	_, err := NewManager(&fakeDeleter{}).StartDeletionTask(nil)
	assert.Error(t, err)
}

func TestGetTaskStatusUnknownID(t *testing.T) {
	_, err := NewManager(&fakeDeleter{}).GetTaskStatus("missing")
	assert.Error(t, err)
}
