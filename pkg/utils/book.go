package utils

import (
	"context"
	"sync"
	"time"
)

var (
	emptyKey = ""
)

// RoutineBook is a counting semaphore whose pages are labelled with the key of the routine holding them.
type RoutineBook struct {
	sync.Mutex
	name          string
	pages         map[string]string
	freeSpaceChan chan struct{}
	size          int
	peak          int
}

func NewRoutineBook(size int, name string) *RoutineBook {
	if size <= 0 {
		size = 1
	}
	r := &RoutineBook{
		name:          name,
		pages:         make(map[string]string, size), // contains a list of keys identifying routines
		freeSpaceChan: make(chan struct{}, size),     // indicates the free position in the array
		size:          size,
	}
	r.Init()
	return r
}

func (r *RoutineBook) Init() {
	for i := 0; i < r.size; i++ {
		r.freeSpaceChan <- struct{}{}
	}
}

// Acquire blocks until a page is free or the context is done.
func (r *RoutineBook) Acquire(ctx context.Context, key string) error {
	ticker := time.NewTicker(AcquireWaitIntervalLog)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			log.Warnf("%s: waiting for too long to acquire page %s...", r.name, key)
		case <-r.freeSpaceChan:
			r.Set(key, "active")
			return nil
		}
	}
}

func (r *RoutineBook) FreePage(key string) {
	r.Lock()
	defer r.Unlock()
	_, ok := r.pages[key]
	// If the key exists
	if ok {
		delete(r.pages, key)
		r.freeSpaceChan <- struct{}{}
	}
}

func (r *RoutineBook) Set(key string, value string) {
	r.Lock()
	defer r.Unlock()
	r.pages[key] = value // book page
	if len(r.pages) > r.peak {
		r.peak = len(r.pages)
	}
}

func (r *RoutineBook) ActivePages() int {
	r.Lock()
	defer r.Unlock()
	result := 0
	for _, item := range r.pages {
		if item != emptyKey {
			result += 1
		}
	}
	return result
}

func (r *RoutineBook) NumFreePages() int {
	r.Lock()
	defer r.Unlock()
	return r.size - len(r.pages)
}

// Peak returns the highest number of pages held at the same time.
func (r *RoutineBook) Peak() int {
	r.Lock()
	defer r.Unlock()
	return r.peak
}

func (r *RoutineBook) Size() int {
	return r.size
}
