package changefeed

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"

	"venue-pos/internal/common/logger"
	"venue-pos/internal/config"
	"venue-pos/internal/connections/database"
	"venue-pos/internal/domain"
)

// Source produces changes until ctx ends or the connection is lost.
type Source interface {
	Listen(ctx context.Context, sink func(domain.ChangeEvent)) error
}

// PGListener reads pg_notify payloads from the trigger channel on a dedicated connection.
type PGListener struct {
	cfg     config.DatabaseConfig
	channel string
	log     *logger.Logger
}

func NewPGListener(cfg config.DatabaseConfig, channel string, lg *logger.Logger) *PGListener {
	return &PGListener{cfg: cfg, channel: channel, log: lg}
}

// Listen returns nil when ctx ends and an error when the connection fails.
func (l *PGListener) Listen(ctx context.Context, sink func(domain.ChangeEvent)) error {
	conn, err := database.ConnectListener(ctx, l.cfg)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.log.Info("listener_started", map[string]any{"channel": l.channel})

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		ev, err := DecodeNotification([]byte(n.Payload))
		if err != nil {
			l.log.Warn("notification_skipped", map[string]any{"error": err.Error()})
			continue
		}
		ev, ok, err := Hydrate(ctx, conn, ev)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch trimmed %s row: %w", ev.Table, err)
		}
		if !ok {
			l.log.Debug("trimmed_row_gone", map[string]any{"table": ev.Table, "id": ev.RowID()})
			continue
		}
		sink(ev)
	}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Hydrate replaces the keys-only image of a trimmed insert or update with the
// row as it is now. ok is false when the row no longer exists; its delete
// arrives as a change of its own.
func Hydrate(ctx context.Context, q rowQuerier, ev domain.ChangeEvent) (domain.ChangeEvent, bool, error) {
	if !ev.Trimmed || ev.Type == domain.ChangeDelete {
		return ev, true, nil
	}
	if !slices.Contains(domain.Tracked, ev.Table) {
		return ev, false, fmt.Errorf("table %q is not tracked", ev.Table)
	}
	var row []byte
	err := q.QueryRow(ctx, `SELECT to_jsonb(t) FROM `+pgx.Identifier{ev.Table}.Sanitize()+` t WHERE id=$1`,
		ev.RowID()).Scan(&row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ev, false, nil
	}
	if err != nil {
		return ev, false, err
	}
	ev.New = row
	return ev, true, nil
}
