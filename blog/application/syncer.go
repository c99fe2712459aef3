package application

import (
	"context"
	"sync"

	"github.com/dfryer1193/commotion/blog/domain"
	"github.com/rs/zerolog/log"
)

// Syncer re-imports posts into a mirror in the background. Triggers that
// arrive while an import runs are folded into a single follow-up run.
type Syncer struct {
	service *PostService
	dst     domain.PostRepository

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	pending bool
}

func NewSyncer(service *PostService, dst domain.PostRepository) *Syncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		service: service,
		dst:     dst,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Trigger schedules an import and returns immediately
func (s *Syncer) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	if s.running {
		s.pending = true
		return
	}

	s.running = true
	s.wg.Add(1)
	go s.run()
}

func (s *Syncer) run() {
	defer s.wg.Done()

	for {
		if _, err := s.service.Import(s.ctx, s.dst); err != nil {
			log.Error().Err(err).Msg("Background import failed")
		}

		s.mu.Lock()
		if !s.pending || s.ctx.Err() != nil {
			s.running = false
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.mu.Unlock()
	}
}

// Close gracefully shuts down the Syncer by cancelling a running import and waiting for it
func (s *Syncer) Close() error {
	// Trigger checks the context and adds to wg under mu
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	return nil
}
