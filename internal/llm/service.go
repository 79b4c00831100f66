package llm

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TextGenerator produces text for a prompt. The label names the call in logs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt, label string) (string, error)
}

// Service adapts a Client into a TextGenerator that cleans model output
type Service struct {
	client Client
	log    zerolog.Logger
	tiers  map[string]ModelTier
}

// NewService wraps client. Labels default to TierStandard unless mapped with WithTier.
func NewService(client Client, log zerolog.Logger) *Service {
	return &Service{
		client: client,
		log:    log,
		tiers:  make(map[string]ModelTier),
	}
}

// WithTier routes calls carrying label to tier
func (s *Service) WithTier(label string, tier ModelTier) *Service {
	s.tiers[label] = tier
	return s
}

// Generate calls the model and returns CleanAIOutput of its response
func (s *Service) Generate(ctx context.Context, prompt, label string) (string, error) {
	tier, ok := s.tiers[label]
	if !ok {
		tier = TierStandard
	}

	start := time.Now()
	raw, err := s.client.GenerateContent(ctx, prompt, tier)
	if err != nil {
		svcErr := &ServiceError{Kind: classify(err), Label: label, Cause: err}
		s.log.Error().Err(err).
			Str("label", label).
			Str("kind", string(svcErr.Kind)).
			Msg("LLM call failed")
		return "", svcErr
	}

	s.log.Debug().
		Str("label", label).
		Str("model", s.client.GetModel(tier)).
		Dur("elapsed", time.Since(start)).
		Int("response_len", len(raw)).
		Msg("LLM call completed")

	return CleanAIOutput(raw), nil
}

func classify(err error) ErrorKind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) {
		return ServiceUnavailable
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return ServiceUnavailable
	}
	return GenerationError
}
