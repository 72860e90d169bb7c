package changefeed

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-pos/internal/domain"
)

func TestHydrateFetchesTrimmedRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ev, err := DecodeNotification([]byte(`{"table":"messages","type":"INSERT","trimmed":true,
		"record":{"id":"m1","conversation_id":"c1"}}`))
	require.NoError(t, err)
	require.True(t, ev.Trimmed)

	full := []byte(`{"id":"m1","conversation_id":"c1","content":"long text"}`)
	mock.ExpectQuery(`SELECT to_jsonb\(t\) FROM "messages" t WHERE id=\$1`).
		WithArgs("m1").
		WillReturnRows(mock.NewRows([]string{"to_jsonb"}).AddRow(full))

	got, ok, err := Hydrate(context.Background(), mock, ev)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(full), string(got.New))
	assert.Equal(t, "c1", got.ParentID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHydrateSkipsRowDeletedSince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT to_jsonb\(t\) FROM "orders"`).
		WithArgs("o1").
		WillReturnError(pgx.ErrNoRows)

	ev := domain.ChangeEvent{Table: domain.TableOrders, Type: domain.ChangeUpdate, Trimmed: true,
		New: []byte(`{"id":"o1","venue_id":"v1"}`)}
	_, ok, err := Hydrate(context.Background(), mock, ev)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHydrateLeavesFullAndDeletePayloads(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	full := domain.ChangeEvent{Table: domain.TableOrders, Type: domain.ChangeInsert, New: []byte(`{"id":"o1"}`)}
	got, ok, err := Hydrate(context.Background(), mock, full)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, full, got)

	del := domain.ChangeEvent{Table: domain.TableOrders, Type: domain.ChangeDelete, Trimmed: true, Old: []byte(`{"id":"o1"}`)}
	_, ok, err = Hydrate(context.Background(), mock, del)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHydrateRejectsUntrackedTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ev := domain.ChangeEvent{Table: "staff", Type: domain.ChangeUpdate, Trimmed: true, New: []byte(`{"id":"s1"}`)}
	_, _, err = Hydrate(context.Background(), mock, ev)
	assert.Error(t, err)
}
