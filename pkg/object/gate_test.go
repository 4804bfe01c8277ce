package object

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateReadersOverlap(t *testing.T) {
	const readers = 8
	var g Gate
	var wg sync.WaitGroup
	inside := make(chan struct{}, readers)
	release := make(chan struct{})

	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.BeginRead(nil); err != nil {
				t.Errorf("BeginRead(): unexpected err: %v", err)
				return
			}
			inside <- struct{}{}
			<-release
			g.EndRead()
		}()
	}

	for i := 0; i < readers; i++ {
		select {
		case <-inside:
		case <-time.After(5 * time.Second):
			t.Fatalf("readers inside: wanted `%d`; found `%d`", readers, i)
		}
	}
	if found := g.Readers(); found != readers {
		t.Fatalf("Readers(): wanted `%d`; found `%d`", readers, found)
	}
	close(release)
	wg.Wait()

	if found := g.Readers(); found != 0 {
		t.Fatalf("Readers(): wanted `0`; found `%d`", found)
	}
}

func TestGateWriterExclusive(t *testing.T) {
	var g Gate
	var readers, writers int32
	var wg sync.WaitGroup
	var violations int32

	for i := 0; i < 32; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = g.BeginRead(nil)
			atomic.AddInt32(&readers, 1)
			if atomic.LoadInt32(&writers) != 0 {
				atomic.AddInt32(&violations, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&readers, -1)
			g.EndRead()
		}()
		go func() {
			defer wg.Done()
			_ = g.BeginWrite(nil)
			if atomic.AddInt32(&writers, 1) != 1 ||
				atomic.LoadInt32(&readers) != 0 {
				atomic.AddInt32(&violations, 1)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&writers, -1)
			g.EndWrite()
		}()
	}
	wg.Wait()

	if violations != 0 {
		t.Fatalf("overlapping sections: wanted `0`; found `%d`", violations)
	}
}

func TestGateEnterFailure(t *testing.T) {
	var g Gate
	failure := errTest("boom")
	if err := g.BeginRead(func() error { return failure }); err != failure {
		t.Fatalf("BeginRead(): wanted `%v`; found `%v`", failure, err)
	}
	if found := g.Readers(); found != 0 {
		t.Fatalf("Readers(): wanted `0`; found `%d`", found)
	}

	// a failed entry must not leave the exclusive lock held
	done := make(chan struct{})
	go func() {
		_ = g.BeginWrite(nil)
		g.EndWrite()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("BeginWrite(): blocked after failed BeginRead()")
	}
}

type errTest string

func (err errTest) Error() string { return string(err) }
