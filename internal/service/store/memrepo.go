package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/cheese-trainer/internal/domain"
)

// memrepo backs the trainer when no database is configured.
type memrepo struct {
	mu sync.RWMutex

	nextID int64

	gamesByUser    map[string][]*domain.GameRecord // playerID -> games, latest last
	gamesBySession map[string]*domain.GameRecord

	profiles map[string]*domain.PlayerProfile
	bots     map[string]*domain.PersonalizedBot
}

func NewMemoryRepository() Repository {
	return &memrepo{
		gamesByUser:    make(map[string][]*domain.GameRecord),
		gamesBySession: make(map[string]*domain.GameRecord),
		profiles:       make(map[string]*domain.PlayerProfile),
		bots:           make(map[string]*domain.PersonalizedBot),
	}
}

func (m *memrepo) InsertGame(ctx context.Context, game *domain.GameRecord) (int64, error) {
	if game == nil {
		return 0, ErrDuplicateGame
	}
	key := strings.TrimSpace(game.SessionUUID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.gamesBySession[key]; exists {
		return 0, ErrDuplicateGame
	}

	m.nextID++
	cp := cloneGame(game)
	cp.ID = m.nextID

	m.gamesBySession[key] = cp
	m.gamesByUser[game.PlayerID] = append(m.gamesByUser[game.PlayerID], cp)
	return cp.ID, nil
}

func (m *memrepo) GetRecentGames(ctx context.Context, playerID string, limit int) ([]*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.gamesByUser[playerID]
	if len(list) == 0 {
		return []*domain.GameRecord{}, nil
	}
	items := make([]*domain.GameRecord, 0, len(list))
	for _, g := range list {
		items = append(items, cloneGame(g))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) GetProfile(ctx context.Context, playerID string) (*domain.PlayerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.profiles[strings.TrimSpace(playerID)]; ok && p != nil {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (m *memrepo) UpsertProfile(ctx context.Context, profile *domain.PlayerProfile) error {
	if profile == nil {
		return nil
	}
	key := strings.TrimSpace(profile.PlayerID)
	cp := *profile

	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.profiles[key]; ok {
		cp.CreatedAt = prev.CreatedAt
		if cp.CalibratedAt.IsZero() {
			cp.CalibratedAt = prev.CalibratedAt
		}
	}
	m.profiles[key] = &cp
	return nil
}

func (m *memrepo) InsertPersonalizedBot(ctx context.Context, bot *domain.PersonalizedBot) error {
	if bot == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.bots[bot.BotID]; exists {
		return nil
	}
	cp := *bot
	m.bots[bot.BotID] = &cp
	return nil
}

func (m *memrepo) ListPersonalizedBots(ctx context.Context, playerID string) ([]*domain.PersonalizedBot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PersonalizedBot
	for _, b := range m.bots {
		if b.PlayerID != playerID {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].BotID < out[j].BotID
	})
	return out, nil
}

func cloneGame(g *domain.GameRecord) *domain.GameRecord {
	cp := *g
	cp.MovesUCI = append([]string(nil), g.MovesUCI...)
	cp.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &cp
}
