package pathspace

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ChristofferGreen/pathspace/core"
)

// TestDiningPhilosophers exercises take-based fork acquisition under
// contention: N philosophers each need their two adjacent forks (taken
// in a fixed low-id-first order to avoid deadlock) to eat, and put both
// back afterward. Every philosopher must eat at least once, and every
// fork must still be available once all philosophers stop.
func TestDiningPhilosophers(t *testing.T) {
	const (
		numPhilosophers  = 5
		eatingDurationMs = 10
		runDuration      = 300 * time.Millisecond
	)

	ps := New()
	for i := 0; i < numPhilosophers; i++ {
		if _, err := ps.Insert(fmt.Sprintf("/fork/%d", i), 1); err != nil {
			t.Fatalf("placing fork %d: %v", i, err)
		}
	}

	mealsEaten := make([]int64, numPhilosophers)
	forksAcquired := make([]int64, numPhilosophers)

	stop := make(chan struct{})
	var wg sync.WaitGroup

	philosopher := func(id int) {
		defer wg.Done()
		rng := rand.New(rand.NewSource(int64(id) + 1))
		left := id
		right := (id + 1) % numPhilosophers
		firstFork := left
		secondFork := right
		if firstFork > secondFork {
			firstFork, secondFork = secondFork, firstFork
		}
		firstPath := fmt.Sprintf("/fork/%d", firstFork)
		secondPath := fmt.Sprintf("/fork/%d", secondFork)

		for {
			select {
			case <-stop:
				return
			default:
			}

			first, err := Take[int](ps, firstPath, core.Block(50*time.Millisecond))
			if err != nil {
				continue
			}
			atomic.AddInt64(&forksAcquired[id], 1)

			second, err := Take[int](ps, secondPath, core.Block(50*time.Millisecond))
			if err != nil {
				ps.Insert(firstPath, first)
				continue
			}
			atomic.AddInt64(&forksAcquired[id], 1)

			time.Sleep(time.Duration(1+rng.Intn(eatingDurationMs)) * time.Millisecond)
			atomic.AddInt64(&mealsEaten[id], 1)

			ps.Insert(secondPath, second)
			ps.Insert(firstPath, first)
		}
	}

	for i := 0; i < numPhilosophers; i++ {
		wg.Add(1)
		go philosopher(i)
	}

	time.Sleep(runDuration)
	close(stop)
	wg.Wait()

	var totalMeals, totalForks int64
	for i := 0; i < numPhilosophers; i++ {
		meals := atomic.LoadInt64(&mealsEaten[i])
		if meals == 0 {
			t.Errorf("philosopher %d never ate", i)
		}
		totalMeals += meals
		totalForks += atomic.LoadInt64(&forksAcquired[i])
	}
	if totalForks < totalMeals*2 {
		t.Fatalf("total forks acquired (%d) should be at least 2x total meals (%d)", totalForks, totalMeals)
	}

	for i := 0; i < numPhilosophers; i++ {
		v, err := Read[int](ps, fmt.Sprintf("/fork/%d", i), core.Block(100*time.Millisecond))
		if err != nil {
			t.Fatalf("fork %d not available after run: %v", i, err)
		}
		if v != 1 {
			t.Fatalf("fork %d has unexpected value %d", i, v)
		}
	}
}
