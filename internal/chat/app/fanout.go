package app

import (
	"context"
	"time"

	"group_chat_service/internal/chat/domain"
	"group_chat_service/internal/chat/repository"
	"group_chat_service/pkg"
	"group_chat_service/pkg/logger"
	"group_chat_service/pkg/metrics"

	"go.uber.org/zap"
)

// Transport delivers one frame to one connection. Send must not block.
type Transport interface {
	Send(connectionID string, resp domain.WSResponse) bool
}

const (
	mirrorQueueSize = 1024
	mirrorTimeout   = 2 * time.Second
)

type mirrorItem struct {
	roomID string // empty for process wide events
	resp   domain.WSResponse
}

// Dispatcher computes recipients from the live presence registry at call time. It keeps no membership of its own.
type Dispatcher struct {
	presence  repository.PresenceRegistry
	transport Transport

	mirror repository.EventMirror
	queue  chan mirrorItem
}

// NewDispatcher create Dispatcher
func NewDispatcher(presence repository.PresenceRegistry, transport Transport) *Dispatcher {
	return &Dispatcher{
		presence:  presence,
		transport: transport,
	}
}

// WithMirror copies every room and global broadcast to mirror. Call RunMirror to drain the copies.
func (d *Dispatcher) WithMirror(mirror repository.EventMirror) *Dispatcher {
	d.mirror = mirror
	d.queue = make(chan mirrorItem, mirrorQueueSize)
	return d
}

// RunMirror publishes queued copies in order until ctx is done.
func (d *Dispatcher) RunMirror(ctx context.Context) {
	if d.mirror == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-d.queue:
			pubCtx, cancel := context.WithTimeout(ctx, mirrorTimeout)
			var err error
			if item.roomID == "" {
				err = d.mirror.MirrorGlobal(pubCtx, item.resp)
			} else {
				err = d.mirror.MirrorRoom(pubCtx, item.roomID, item.resp)
			}
			cancel()
			if err != nil {
				metrics.MirrorErrors.WithLabelValues("redis").Inc()
				logger.Log.Warn("mirror publish", zap.String("event", string(item.resp.Event)), zap.Error(err))
			}
		}
	}
}

// PresenceSnapshot emits online-users to every connection in roomID and returns the snapshot.
// A user with several sessions in the room appears once.
func (d *Dispatcher) PresenceSnapshot(roomID string) []domain.OnlineUser {
	sessions := d.presence.ListByRoom(roomID)

	seen := make(map[string]struct{}, len(sessions))
	users := make([]domain.OnlineUser, 0, len(sessions))
	for _, s := range sessions {
		if _, ok := seen[s.UserID]; ok {
			continue
		}
		seen[s.UserID] = struct{}{}
		users = append(users, domain.OnlineUser{
			ID:       s.UserID,
			Username: s.Username,
			Avatar:   s.Avatar,
			Status:   s.Status,
		})
	}

	d.emitTo(sessions, domain.WSResponse{Event: domain.OnlineUsers, Data: users}, nil)
	d.offer(roomID, domain.WSResponse{Event: domain.OnlineUsers, Data: users})
	return users
}

// BroadcastToRoom delivers to every connection whose current room is roomID, except the excluded connection ids.
func (d *Dispatcher) BroadcastToRoom(roomID string, event domain.Event, payload interface{}, excludeConnIDs ...string) int {
	resp := domain.WSResponse{Event: event, Data: payload}
	n := d.emitTo(d.presence.ListByRoom(roomID), resp, excludeConnIDs)
	d.offer(roomID, resp)
	return n
}

// BroadcastAll delivers to every live connection.
func (d *Dispatcher) BroadcastAll(event domain.Event, payload interface{}) int {
	resp := domain.WSResponse{Event: event, Data: payload}
	n := d.emitTo(d.presence.List(), resp, nil)
	d.offer("", resp)
	return n
}

// DirectTo delivers to a single connection.
func (d *Dispatcher) DirectTo(connectionID string, event domain.Event, payload interface{}) bool {
	return d.transport.Send(connectionID, domain.WSResponse{Event: event, Data: payload})
}

// DirectToUser delivers to every live session of userID and returns how many were reached.
func (d *Dispatcher) DirectToUser(userID string, event domain.Event, payload interface{}) int {
	return d.emitTo(d.presence.ListByUser(userID), domain.WSResponse{Event: event, Data: payload}, nil)
}

func (d *Dispatcher) emitTo(sessions []domain.Session, resp domain.WSResponse, exclude []string) int {
	sent := 0
	for _, s := range sessions {
		if pkg.Contains(exclude, s.ConnectionID) {
			continue
		}
		if d.transport.Send(s.ConnectionID, resp) {
			sent++
		}
	}
	return sent
}

func (d *Dispatcher) offer(roomID string, resp domain.WSResponse) {
	if d.mirror == nil {
		return
	}
	select {
	case d.queue <- mirrorItem{roomID: roomID, resp: resp}:
	default:
		metrics.MirrorErrors.WithLabelValues("redis").Inc()
		logger.Log.Warn("mirror queue full, copy dropped", zap.String("event", string(resp.Event)))
	}
}
