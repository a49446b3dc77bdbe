package l3_service

import "sync"

// UserLocks serializes every ledger write for one user. different
// users never contend. share one instance between the l3 services
type UserLocks struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{
		locks: map[string]*sync.Mutex{},
	}
}

func (u *UserLocks) Lock(userID string) func() {
	u.mutex.Lock()
	l, ok := u.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		u.locks[userID] = l
	}
	u.mutex.Unlock()

	l.Lock()
	return l.Unlock
}
