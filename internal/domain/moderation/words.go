package moderation

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/tradepost/trust-api/internal/pkg/cache"
)

const wordCacheTTL = 5 * time.Minute

// WordService manages the blocked-word list. The active list is read on
// every scoring pass, so it is cached in Redis with a short TTL; the cache
// never gates correctness and a nil client falls through to storage.
type WordService struct {
	repo        Repository
	rdb         *redis.Client
	invalidator *cache.Invalidator
	maxLen      int
}

// NewWordService creates the blocked-word service. rdb may be nil.
func NewWordService(repo Repository, rdb *redis.Client, invalidator *cache.Invalidator, maxLen int) *WordService {
	return &WordService{
		repo:        repo,
		rdb:         rdb,
		invalidator: invalidator,
		maxLen:      maxLen,
	}
}

// ActiveWords returns the active word list, cached read-through
func (s *WordService) ActiveWords(ctx context.Context) ([]*BlockedWord, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, cache.WordListKey).Bytes(); err == nil {
			var words []*BlockedWord
			if err := json.Unmarshal(raw, &words); err == nil {
				return words, nil
			}
		}
	}

	words, err := s.repo.ListActiveWords(ctx)
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(words); err == nil {
			if err := s.rdb.Set(ctx, cache.WordListKey, raw, wordCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("Word list cache write failed")
			}
		}
	}

	return words, nil
}

// Add normalizes and stores a new blocked word. Word uniqueness is the
// storage constraint's job.
func (s *WordService) Add(ctx context.Context, adminID uuid.UUID, req *AddWordRequest) (*BlockedWord, error) {
	word := Normalize(req.Word)
	if word == "" {
		return nil, ErrWordEmpty
	}
	if len(word) > s.maxLen {
		return nil, ErrWordTooLong
	}

	entry := &BlockedWord{
		ID:        uuid.New(),
		Word:      word,
		Severity:  req.Severity,
		AddedBy:   adminID,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateWord(ctx, entry); err != nil {
		return nil, err
	}

	s.invalidator.InvalidateWordList()
	return entry, nil
}

// Deactivate retires a word from the active list
func (s *WordService) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeactivateWord(ctx, id); err != nil {
		return err
	}
	s.invalidator.InvalidateWordList()
	return nil
}

// List returns all words, active and retired
func (s *WordService) List(ctx context.Context) ([]*BlockedWord, error) {
	return s.repo.ListWords(ctx)
}

// Normalize lowercases and trims a word the way it is stored
func Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}
