package ws

import (
	"encoding/json"
	"sync"

	"tresesenta/internal/models"
	"tresesenta/internal/service"
	"tresesenta/pkg/logger"

	"github.com/puzpuzpuz/xsync/v3"
)

// Event types pushed to clients.
const (
	EventCommentCreated = "comment_created"
	EventLikeCount      = "like_count"
	EventPointsAwarded  = "points_awarded"
)

type room struct {
	mu      sync.RWMutex
	members map[*Client]struct{}
}

// PinHub adds per-pin rooms to Hub. Viewers of a pin join its room to get
// live comments and like counts; point events go to the earning user.
type PinHub struct {
	*Hub
	rooms *xsync.MapOf[uint, *room]
	// joined tracks the rooms of each client for cleanup on disconnect.
	joined *xsync.MapOf[*Client, map[uint]struct{}]
}

var _ service.Events = (*PinHub)(nil)

func NewPinHub() *PinHub {
	h := &PinHub{
		Hub:    NewHub(),
		rooms:  xsync.NewMapOf[uint, *room](),
		joined: xsync.NewMapOf[*Client, map[uint]struct{}](),
	}
	h.Hub.onLeave = h.leaveAll
	return h
}

func (h *PinHub) Join(c *Client, pinID uint) {
	h.rooms.Compute(pinID, func(r *room, loaded bool) (*room, bool) {
		if !loaded {
			r = &room{members: make(map[*Client]struct{})}
		}
		r.mu.Lock()
		r.members[c] = struct{}{}
		r.mu.Unlock()
		return r, false
	})
	h.joined.Compute(c, func(old map[uint]struct{}, loaded bool) (map[uint]struct{}, bool) {
		next := make(map[uint]struct{}, len(old)+1)
		for id := range old {
			next[id] = struct{}{}
		}
		next[pinID] = struct{}{}
		return next, false
	})
}

func (h *PinHub) Leave(c *Client, pinID uint) {
	h.removeMember(c, pinID)
	h.joined.Compute(c, func(old map[uint]struct{}, loaded bool) (map[uint]struct{}, bool) {
		if !loaded {
			return nil, true
		}
		next := make(map[uint]struct{}, len(old))
		for id := range old {
			if id != pinID {
				next[id] = struct{}{}
			}
		}
		return next, len(next) == 0
	})
}

// removeMember drops c from the room and deletes the room once empty.
// Membership changes run inside Compute so they serialize per pin.
func (h *PinHub) removeMember(c *Client, pinID uint) {
	h.rooms.Compute(pinID, func(r *room, loaded bool) (*room, bool) {
		if !loaded {
			return nil, true
		}
		r.mu.Lock()
		delete(r.members, c)
		empty := len(r.members) == 0
		r.mu.Unlock()
		return r, empty
	})
}

func (h *PinHub) leaveAll(c *Client) {
	pins, ok := h.joined.LoadAndDelete(c)
	if !ok {
		return
	}
	for id := range pins {
		h.removeMember(c, id)
	}
}

// RoomSize returns the number of clients watching pinID.
func (h *PinHub) RoomSize(pinID uint) int {
	r, ok := h.rooms.Load(pinID)
	if !ok {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (h *PinHub) BroadcastToPin(pinID uint, payload interface{}) {
	r, ok := h.rooms.Load(pinID)
	if !ok {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.WithError(err).Warn("ws: marshal payload")
		return
	}
	r.mu.RLock()
	members := make([]*Client, 0, len(r.members))
	for c := range r.members {
		members = append(members, c)
	}
	r.mu.RUnlock()
	for _, c := range members {
		c.deliver(data)
	}
}

func (h *PinHub) PointsAwarded(userID uint, tx *models.PointTransaction) {
	if tx == nil {
		return
	}
	h.BroadcastToUser(userID, map[string]interface{}{
		"type":          EventPointsAwarded,
		"action_code":   tx.ActionCode,
		"points":        tx.Points,
		"balance_after": tx.BalanceAfter,
		"pin_id":        tx.RelatedPinID,
	})
}

func (h *PinHub) LikeCount(pinID uint, likes int) {
	h.BroadcastToPin(pinID, map[string]interface{}{
		"type":        EventLikeCount,
		"pin_id":      pinID,
		"likes_count": likes,
	})
}

func (h *PinHub) CommentCreated(pinID uint, comment *models.Comment) {
	h.BroadcastToPin(pinID, map[string]interface{}{
		"type":    EventCommentCreated,
		"pin_id":  pinID,
		"comment": comment,
	})
}
