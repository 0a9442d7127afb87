package celebration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Serve forwards userID's messages from sub to conn until the client disconnects or ctx ends.
// The connection is closed on return.
func Serve(ctx context.Context, conn *websocket.Conn, sub Subscriber, userID string) error {
	// Clients only listen; CloseRead discards their frames and cancels ctx when they hang up.
	ctx = conn.CloseRead(ctx)

	msgs, cancel, err := sub.Subscribe(ctx, userID)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return fmt.Errorf("subscribe %s: %w", userID, err)
	}
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "stream closed")
				return nil
			}
			if err := write(ctx, conn, msg); err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancelPing := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancelPing()
			if err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
