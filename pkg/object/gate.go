package object

import "sync"

// Gate admits many concurrent readers or one writer. The first reader in
// takes the exclusive lock on behalf of all readers and the last reader out
// releases it.
type Gate struct {
	counting  sync.Mutex
	exclusive sync.Mutex
	readers   int
}

// BeginRead enters a read section. `enter`, if not nil, runs while the
// counting lock is held; if it fails the section is left again and its error
// returned.
func (g *Gate) BeginRead(enter func() error) error {
	g.counting.Lock()
	defer g.counting.Unlock()
	g.readers++
	if g.readers == 1 {
		g.exclusive.Lock()
	}
	if enter != nil {
		if err := enter(); err != nil {
			g.leaveRead()
			return err
		}
	}
	return nil
}

func (g *Gate) EndRead() {
	g.counting.Lock()
	defer g.counting.Unlock()
	g.leaveRead()
}

func (g *Gate) leaveRead() {
	g.readers--
	if g.readers == 0 {
		g.exclusive.Unlock()
	}
}

// BeginWrite enters the exclusive section, running `enter` once inside.
func (g *Gate) BeginWrite(enter func() error) error {
	g.exclusive.Lock()
	if enter != nil {
		if err := enter(); err != nil {
			g.exclusive.Unlock()
			return err
		}
	}
	return nil
}

func (g *Gate) EndWrite() { g.exclusive.Unlock() }

// Readers is the number of callers currently inside a read section.
func (g *Gate) Readers() int {
	g.counting.Lock()
	defer g.counting.Unlock()
	return g.readers
}

// snapshot runs `f` while holding the counting lock. Inside a read section
// this excludes concurrent timestamp updates made by entering readers.
func (g *Gate) snapshot(f func()) {
	g.counting.Lock()
	defer g.counting.Unlock()
	f()
}
