package usecase

import (
	"context"
	"testing"
	"time"

	"CryptoNotify/internal/domain/models"
	"CryptoNotify/pkg/logger"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAutoReadFixture(t *testing.T, autoMark bool) (*Store, *AutoReader, *clock.Mock) {
	t.Helper()
	settings := models.DefaultSettings()
	settings.AutoMarkAsRead = autoMark
	s, _ := newStartedStore(t, settings)

	mock := clock.NewMock()
	ar := NewAutoReader(context.Background(), s, s, mock, logger.Nop())
	s.Subscribe(ar)
	t.Cleanup(ar.Close)
	return s, ar, mock
}

func dispatch(t *testing.T, s *Store, a models.Action) models.State {
	t.Helper()
	st, err := s.Dispatch(context.Background(), a)
	require.NoError(t, err)
	return st
}

func isRead(s *Store, id string) bool {
	r, ok := s.Snapshot().Find(id)
	return ok && r.Read
}

func TestAutoReader_MarksReadAfterDuration(t *testing.T) {
	s, ar, mock := newAutoReadFixture(t, true)

	dispatch(t, s, models.Add{Record: rec("a", models.KindInfo, false)})
	assert.Equal(t, 1, ar.Pending())

	mock.Add(4 * time.Second)
	assert.False(t, isRead(s, "a"))

	mock.Add(time.Second)
	assert.Eventually(t, func() bool { return isRead(s, "a") }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return ar.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestAutoReader_UsesRecordDuration(t *testing.T) {
	s, _, mock := newAutoReadFixture(t, true)

	r := rec("a", models.KindInfo, false)
	r.DisplayDuration = 8 * time.Second
	dispatch(t, s, models.Add{Record: r})

	mock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, isRead(s, "a"))

	mock.Add(3 * time.Second)
	assert.Eventually(t, func() bool { return isRead(s, "a") }, time.Second, 5*time.Millisecond)
}

func TestAutoReader_SkipsUrgentAndPinned(t *testing.T) {
	s, ar, _ := newAutoReadFixture(t, true)

	dispatch(t, s, models.Add{Record: rec("urgent", models.KindAlert, true)})
	pinned := rec("pinned", models.KindInfo, false)
	pinned.AutoHide = boolPtr(false)
	dispatch(t, s, models.Add{Record: pinned})

	assert.Zero(t, ar.Pending())
}

func TestAutoReader_RespectsAutoMarkSetting(t *testing.T) {
	s, _, mock := newAutoReadFixture(t, false)

	dispatch(t, s, models.Add{Record: rec("a", models.KindInfo, false)})
	mock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)

	assert.False(t, isRead(s, "a"))
	assert.Equal(t, 1, s.Snapshot().UnreadCount)
}

func TestAutoReader_CancelsOnRemoveAndRead(t *testing.T) {
	s, ar, _ := newAutoReadFixture(t, true)

	dispatch(t, s, models.Add{Record: rec("a", models.KindInfo, false)})
	dispatch(t, s, models.Add{Record: rec("b", models.KindInfo, false)})
	dispatch(t, s, models.Add{Record: rec("c", models.KindInfo, false)})
	assert.Equal(t, 3, ar.Pending())

	dispatch(t, s, models.Remove{ID: "a"})
	assert.Equal(t, 2, ar.Pending())

	dispatch(t, s, models.MarkRead{ID: "b"})
	assert.Equal(t, 1, ar.Pending())

	dispatch(t, s, models.ClearAll{})
	assert.Zero(t, ar.Pending())
}

func TestAutoReader_CloseCancelsTimers(t *testing.T) {
	s, ar, mock := newAutoReadFixture(t, true)

	dispatch(t, s, models.Add{Record: rec("a", models.KindInfo, false)})
	ar.Close()
	assert.Zero(t, ar.Pending())

	mock.Add(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, isRead(s, "a"))

	dispatch(t, s, models.Add{Record: rec("b", models.KindInfo, false)})
	assert.Zero(t, ar.Pending())
}
