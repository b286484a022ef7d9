package memory

import (
	"context"
	"errors"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"relay/internal/apperr"
	"relay/internal/gateway"
)

var authorJoin = []gateway.Join{{Relation: "User"}}

// ToggleLike removes the current user's like on memory id if there is one and adds
// it otherwise, then moves the local likes_count by exactly one. It reports whether
// the memory is liked afterwards.
//
// The count is not refetched, so likes from other sessions show up only on the next
// fetch. Concurrent toggles of the same memory by the same user share one round trip,
// which outlives the cancellation of whichever caller started it.
func (s *Store) ToggleLike(ctx context.Context, id string) (bool, error) {
	uid, err := s.gw.CurrentUserID(ctx)
	if err != nil {
		return false, err
	}
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.toggles.Do(uid+"/"+id, func() (any, error) {
		return s.toggleLike(shared, uid, id)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *Store) toggleLike(ctx context.Context, uid, id string) (bool, error) {
	key := gateway.Filter{"memory_id": id, "user_id": uid}

	var existing Like
	err := s.gw.SelectOne(ctx, gateway.MemoryLikes, gateway.Query{Filter: key}, &existing)
	switch {
	case err == nil:
		if err := s.gw.Delete(ctx, gateway.MemoryLikes, gateway.Filter{"id": existing.ID}); err != nil {
			s.log.Error("unlike failed", zap.String("memory_id", id), zap.Error(err))
			return false, apperr.Remote("unlike memory", err)
		}
		s.adjustLikes(id, -1)
		return false, nil

	case errors.Is(err, apperr.ErrNotFound):
		like := Like{MemoryID: id, UserID: uid}
		if err := s.gw.Insert(ctx, gateway.MemoryLikes, &like); err != nil {
			s.log.Error("like failed", zap.String("memory_id", id), zap.Error(err))
			return false, apperr.Remote("like memory", err)
		}
		s.adjustLikes(id, 1)
		return true, nil

	default:
		s.log.Error("like lookup failed", zap.String("memory_id", id), zap.Error(err))
		return false, apperr.Remote("look up like", err)
	}
}

func (s *Store) adjustLikes(id string, delta int) {
	s.items.Update(id, func(m Memory) Memory {
		m.LikesCount = max(m.LikesCount+delta, 0)
		return m
	})
}

// AddComment appends a comment by the current user to memory id and bumps its
// comments_count. Blank content is rejected without calling the gateway.
func (s *Store) AddComment(ctx context.Context, id, content string) (Comment, error) {
	content, err := validateComment(content)
	if err != nil {
		return Comment{}, apperr.Invalid(err)
	}
	uid, err := s.gw.CurrentUserID(ctx)
	if err != nil {
		return Comment{}, err
	}

	c := Comment{MemoryID: id, UserID: uid, Content: content}
	if err := s.gw.Insert(ctx, gateway.MemoryComments, &c, authorJoin...); err != nil {
		s.log.Error("add comment failed", zap.String("memory_id", id), zap.Error(err))
		return Comment{}, apperr.Remote("add comment", err)
	}

	s.items.Update(id, func(m Memory) Memory {
		m.Comments = append(slices.Clone(m.Comments), c)
		m.CommentsCount++
		return m
	})
	return c, nil
}

// AddStamp appends a catalog stamp by the current user to memory id.
// Stamps have no counter.
func (s *Store) AddStamp(ctx context.Context, id, stampID string) (Stamp, error) {
	if err := validation.Validate(stampID, validation.Required, stampRule); err != nil {
		return Stamp{}, apperr.Invalid(err)
	}
	uid, err := s.gw.CurrentUserID(ctx)
	if err != nil {
		return Stamp{}, err
	}

	st := Stamp{MemoryID: id, StampID: stampID, UserID: uid}
	if err := s.gw.Insert(ctx, gateway.MemoryStamps, &st, authorJoin...); err != nil {
		s.log.Error("add stamp failed", zap.String("memory_id", id), zap.Error(err))
		return Stamp{}, apperr.Remote("add stamp", err)
	}

	s.items.Update(id, func(m Memory) Memory {
		m.Stamps = append(slices.Clone(m.Stamps), st)
		return m
	})
	return st, nil
}

// Stats summarizes the snapshot.
type Stats struct {
	Memories int `json:"memories"`
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Public   int `json:"public"`
}

func (s *Store) Stats() Stats {
	var st Stats
	for _, m := range s.items.Snapshot() {
		st.Memories++
		st.Likes += m.LikesCount
		st.Comments += m.CommentsCount
		if m.IsPublic {
			st.Public++
		}
	}
	return st
}
