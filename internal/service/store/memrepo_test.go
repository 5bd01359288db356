package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/cheese-trainer/internal/domain"
)

func TestMemoryRepositoryGames(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"s1", "s2", "s3"} {
		_, err := repo.InsertGame(ctx, &domain.GameRecord{
			SessionUUID: id,
			PlayerID:    "p1",
			MovesUCI:    []string{"e2e4"},
			EndedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}
	if _, err := repo.InsertGame(ctx, &domain.GameRecord{SessionUUID: "s2", PlayerID: "p1"}); !errors.Is(err, ErrDuplicateGame) {
		t.Fatalf("expected ErrDuplicateGame, got %v", err)
	}

	games, err := repo.GetRecentGames(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	var got []string
	for _, g := range games {
		got = append(got, g.SessionUUID)
	}
	if diff := cmp.Diff([]string{"s3", "s2"}, got); diff != "" {
		t.Fatalf("recent order mismatch (-want +got):\n%s", diff)
	}

	games[0].MovesUCI[0] = "zzzz"
	again, _ := repo.GetRecentGames(ctx, "p1", 1)
	if again[0].MovesUCI[0] != "e2e4" {
		t.Fatalf("repository leaked internal slice")
	}

	empty, err := repo.GetRecentGames(ctx, "nobody", 5)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty list, got %v %v", empty, err)
	}
}

func TestMemoryRepositoryProfiles(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	calibrated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if p, err := repo.GetProfile(ctx, "p1"); err != nil || p != nil {
		t.Fatalf("expected no profile, got %+v %v", p, err)
	}
	if err := repo.UpsertProfile(ctx, &domain.PlayerProfile{PlayerID: "p1", Rating: 2531, CalibratedAt: calibrated}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.UpsertProfile(ctx, &domain.PlayerProfile{PlayerID: "p1", Rating: 2531, GamesPlayed: 6}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	p, err := repo.GetProfile(ctx, "p1")
	if err != nil || p == nil {
		t.Fatalf("get profile: %+v %v", p, err)
	}
	if p.GamesPlayed != 6 || !p.CalibratedAt.Equal(calibrated) {
		t.Fatalf("unexpected profile %+v", p)
	}
}

func TestMemoryRepositoryPersonalizedBots(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	bots := []*domain.PersonalizedBot{
		{BotID: "your-bot-b", PlayerID: "p1", Rating: 1200, CreatedAt: t0.Add(time.Hour)},
		{BotID: "your-bot-a", PlayerID: "p1", Rating: 2531, CreatedAt: t0},
		{BotID: "your-bot-c", PlayerID: "p2", Rating: 900, CreatedAt: t0},
	}
	for _, b := range bots {
		if err := repo.InsertPersonalizedBot(ctx, b); err != nil {
			t.Fatalf("insert bot: %v", err)
		}
	}
	// Second insert of the same id is ignored.
	if err := repo.InsertPersonalizedBot(ctx, &domain.PersonalizedBot{BotID: "your-bot-a", PlayerID: "p1", Rating: 1}); err != nil {
		t.Fatalf("insert duplicate: %v", err)
	}

	got, err := repo.ListPersonalizedBots(ctx, "p1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].BotID != "your-bot-a" || got[0].Rating != 2531 || got[1].BotID != "your-bot-b" {
		t.Fatalf("unexpected bots %+v", got)
	}
}
