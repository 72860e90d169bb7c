package livestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/domain"
)

func callStore() *Store[domain.WaiterCall] {
	return New(Options[domain.WaiterCall]{
		Key:  func(c domain.WaiterCall) string { return c.ID },
		Keep: func(c domain.WaiterCall) bool { return !c.Status.IsTerminal() },
		Less: func(a, b domain.WaiterCall) bool { return a.CreatedAt.Before(b.CreatedAt) },
	})
}

func TestApplyInsertUpdateDelete(t *testing.T) {
	s := callStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.Replace([]domain.WaiterCall{
		{ID: "b", Status: domain.CallPending, CreatedAt: base.Add(time.Minute)},
		{ID: "a", Status: domain.CallPending, CreatedAt: base},
	})

	ins, err := domain.NewChange(domain.TableWaiterCalls, domain.ChangeInsert,
		domain.WaiterCall{ID: "c", Status: domain.CallPending, CreatedAt: base.Add(2 * time.Minute)}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Apply(ins))

	upd, err := domain.NewChange(domain.TableWaiterCalls, domain.ChangeUpdate,
		domain.WaiterCall{ID: "a", Status: domain.CallAcknowledged, CreatedAt: base}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Apply(upd))

	got, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, domain.CallAcknowledged, got.Status)

	del, err := domain.NewChange(domain.TableWaiterCalls, domain.ChangeDelete, nil, domain.WaiterCall{ID: "b"})
	require.NoError(t, err)
	require.NoError(t, s.Apply(del))

	ids := []string{}
	for _, c := range s.List() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"a", "c"}, ids)
}

func TestKeepRemovesTerminalRows(t *testing.T) {
	s := callStore()
	s.Upsert(domain.WaiterCall{ID: "a", Status: domain.CallPending})
	assert.False(t, s.Upsert(domain.WaiterCall{ID: "a", Status: domain.CallCompleted}))
	assert.Equal(t, 0, s.Len())
}

func TestInsertionOrderWithoutLess(t *testing.T) {
	s := New(Options[domain.Table]{Key: func(t domain.Table) string { return t.ID }})
	s.Upsert(domain.Table{ID: "z"})
	s.Upsert(domain.Table{ID: "a"})
	s.Upsert(domain.Table{ID: "z", Number: 3})

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "z", list[0].ID)
	assert.Equal(t, 3, list[0].Number)
}

func TestApplyRejectsEmptyRecord(t *testing.T) {
	s := callStore()
	assert.Error(t, s.Apply(domain.ChangeEvent{Table: domain.TableWaiterCalls, Type: domain.ChangeInsert}))
}
