// Package rworker runs jobs on a bounded number of goroutines.
package rworker

import "sync"

// Pool runs jobs with at most limit of them in flight and keeps the first
// error.
type Pool struct {
	wg   sync.WaitGroup
	rate chan struct{}

	errOnce sync.Once
	err     error
}

func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{rate: make(chan struct{}, limit)}
}

// Go blocks until a slot is free and runs fn on it.
func (p *Pool) Go(fn func() error) {
	p.wg.Add(1)
	p.rate <- struct{}{}
	go func() {
		defer func() {
			<-p.rate
			p.wg.Done()
		}()
		if err := fn(); err != nil {
			p.errOnce.Do(func() {
				p.err = err
			})
		}
	}()
}

// Wait blocks until every job finished and returns the first error.
func (p *Pool) Wait() error {
	p.wg.Wait()
	return p.err
}
