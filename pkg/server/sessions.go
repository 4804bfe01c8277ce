package server

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/weberc2/blockfs/pkg/filesystem"
	. "github.com/weberc2/blockfs/pkg/types"
)

const SessionNotFoundErr ConstError = "session not found"

// session is a registered client. It remembers how many times it opened
// each handle so it can release them all when it goes away.
type session struct {
	uid     int32
	handles map[filesystem.Handle]int
}

type sessions struct {
	mutex sync.Mutex
	byID  map[string]*session
}

func (s *sessions) create(uid int32) string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.byID == nil {
		s.byID = map[string]*session{}
	}
	id := uuid.NewString()
	s.byID[id] = &session{uid: uid, handles: map[filesystem.Handle]int{}}
	return id
}

func (s *sessions) uid(id string) (int32, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return 0, fmt.Errorf("session `%s`: %w", id, SessionNotFoundErr)
	}
	return sess.uid, nil
}

func (s *sessions) acquire(id string, h filesystem.Handle) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("session `%s`: %w", id, SessionNotFoundErr)
	}
	sess.handles[h]++
	return nil
}

// holds reports whether the session has `h` open.
func (s *sessions) holds(id string, h filesystem.Handle) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("session `%s`: %w", id, SessionNotFoundErr)
	}
	if sess.handles[h] < 1 {
		return fmt.Errorf(
			"session `%s`: handle `%d`: %w",
			id,
			h,
			InvalidHandleErr,
		)
	}
	return nil
}

func (s *sessions) release(id string, h filesystem.Handle) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("session `%s`: %w", id, SessionNotFoundErr)
	}
	if sess.handles[h] < 1 {
		return fmt.Errorf(
			"session `%s`: handle `%d`: %w",
			id,
			h,
			InvalidHandleErr,
		)
	}
	sess.handles[h]--
	if sess.handles[h] == 0 {
		delete(sess.handles, h)
	}
	return nil
}

// remove forgets the session and returns the handles it still held, each
// repeated once per outstanding open.
func (s *sessions) remove(id string) ([]filesystem.Handle, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	sess, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("session `%s`: %w", id, SessionNotFoundErr)
	}
	delete(s.byID, id)
	var handles []filesystem.Handle
	for h, count := range sess.handles {
		for i := 0; i < count; i++ {
			handles = append(handles, h)
		}
	}
	return handles, nil
}
