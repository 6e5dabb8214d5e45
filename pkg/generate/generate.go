// Package generate wraps the image-generation backend with the loading and
// error slots the editor surfaces to the user.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

type AspectRatio string

const (
	Square AspectRatio = "1:1"
	Wide   AspectRatio = "16:9"
)

func (a AspectRatio) Valid() bool {
	return a == Square || a == Wide
}

var (
	ErrNoImage        = errors.New("generate: backend returned no image")
	ErrNotInitialized = errors.New("generate: backend not initialized")
	ErrAspectRatio    = errors.New("generate: unsupported aspect ratio")
)

// Backend produces one encoded image for a prompt. A nil slice with a nil
// error means the backend produced nothing.
type Backend interface {
	Generate(ctx context.Context, prompt string, ratio AspectRatio) ([]byte, error)
}

// Service tracks whether a call is in flight and the last user-visible
// error.
type Service struct {
	backend Backend
	logger  *log.Logger

	mu       sync.Mutex
	inFlight int
	errMsg   string
}

func NewService(b Backend, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{backend: b, logger: logger}
}

// Unavailable returns a Service whose backend failed to start. Every call
// fails and msg stays visible until the next attempt.
func Unavailable(msg string, logger *log.Logger) *Service {
	s := NewService(nil, logger)
	s.errMsg = msg
	return s
}

func (s *Service) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Error is the last user-visible failure, or "" if the last call succeeded.
func (s *Service) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Service) SetError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}

// GenerateImage asks the backend for one image. Failures are returned and
// also recorded for Error.
func (s *Service) GenerateImage(ctx context.Context, prompt string, ratio AspectRatio) ([]byte, error) {
	if s.backend == nil {
		s.SetError("AI Service not initialized.")
		return nil, ErrNotInitialized
	}
	if !ratio.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrAspectRatio, ratio)
	}

	s.mu.Lock()
	s.inFlight++
	s.errMsg = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	data, err := s.backend.Generate(ctx, prompt, ratio)
	if err != nil {
		s.logger.Printf("Error generating image: %v", err)
		s.SetError(fmt.Sprintf("An error occurred while generating the image: %v", err))
		return nil, fmt.Errorf("generate: %w", err)
	}
	if len(data) == 0 {
		s.logger.Printf("Error generating image: %v", ErrNoImage)
		s.SetError("The model returned no image. Try a different prompt.")
		return nil, ErrNoImage
	}
	return data, nil
}

// TilePrompt turns a short description into a request for one tile that
// fits a tilemap.
func TilePrompt(desc string) string {
	return fmt.Sprintf("A single game tile, pixel art style, that looks like: %q. It should seamlessly fit into a tilemap.", desc)
}
