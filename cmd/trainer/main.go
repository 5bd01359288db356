package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/cheese-trainer/internal/app"
	"github.com/park285/cheese-trainer/internal/chess/rules"
	appcfg "github.com/park285/cheese-trainer/internal/config"
	"github.com/park285/cheese-trainer/internal/obslog"
	"github.com/park285/cheese-trainer/internal/service/calibration"
	"github.com/park285/cheese-trainer/internal/service/game"
	"github.com/park285/cheese-trainer/internal/service/store"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	deps, err := app.New(ctx, cfg, obslog.L())
	if err != nil {
		stop()
		log.Fatalf("trainer init error: %v", err)
	}

	code := 0
	if err := run(ctx, deps, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		code = 1
	}
	deps.Close()
	stop()
	obslog.Sync()
	os.Exit(code)
}

func run(ctx context.Context, deps *app.Deps, args []string) error {
	cmd := "play"
	if len(args) > 0 {
		cmd = strings.ToLower(args[0])
		args = args[1:]
	}
	switch cmd {
	case "bots":
		return listBots(deps)
	case "play":
		return playGame(ctx, deps, args)
	case "calibrate":
		return calibrate(ctx, deps)
	case "history":
		return history(ctx, deps)
	case "help", "-h", "--help":
		fmt.Println(helpText())
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, helpText())
	}
}

func helpText() string {
	return strings.Join([]string{
		"Cheese Trainer",
		"",
		"  trainer bots                       list opponents",
		"  trainer play [bot-id] [white|black] play a game",
		"  trainer calibrate                  five games to build your personalized bot",
		"  trainer history                    your recent games",
		"",
		"During a game: <move> (e2e4 or Nf3), moves, fen, coach <text>, analyze, resign, abort",
	}, "\n")
}

func listBots(deps *app.Deps) error {
	for _, b := range deps.Catalog.List() {
		fmt.Println(deps.Messages.Text("cli.bot_line", map[string]any{"ID": b.ID, "Label": b.Label}, b.ID+"  "+b.Label))
	}
	return nil
}

func playGame(ctx context.Context, deps *app.Deps, args []string) error {
	botID := deps.Config.DefaultBot
	var color *rules.Color
	for _, a := range args {
		if c, err := rules.ParseColor(a); err == nil {
			color = &c
			continue
		}
		botID = a
	}
	profile, ok := deps.Catalog.Lookup(botID)
	if !ok {
		return fmt.Errorf("unknown bot %q (try 'trainer bots')", botID)
	}

	g, gctx := errgroup.WithContext(ctx)
	player := newTerminalPlayer(gctx, g, deps, profile.Name)

	var (
		final   game.Session
		outcome game.Outcome
	)
	g.Go(func() error {
		defer player.stop()
		if _, err := deps.Controller.SelectBot(gctx, profile, color); err != nil {
			return err
		}
		var err error
		final, outcome, err = deps.Controller.Play(gctx, player)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	player.println(deps.Messages.Text("cli.game_over",
		map[string]any{"Outcome": outcome, "Status": final.Status},
		fmt.Sprintf("Game over: %s (%s)", outcome, final.Status)))
	rec := store.RecordFromSession(final, profile, store.RecordMeta{PlayerID: deps.Config.PlayerID})
	if _, err := deps.Repo.InsertGame(ctx, rec); err != nil {
		obslog.For(nil, obslog.CLI).Warn("record game failed", zap.String("session", final.ID), zap.Error(err))
	}
	player.println(rec.PGN)
	return nil
}

func calibrate(ctx context.Context, deps *app.Deps) error {
	if prev, ok, err := deps.Calibrator.LoadCheckpoint(ctx, deps.Config.PlayerID); err == nil && ok && prev.Phase == calibration.PhaseCompleted {
		fmt.Printf("Last calibration finished at %d.\n", prev.Final)
	}

	g, gctx := errgroup.WithContext(ctx)
	player := newTerminalPlayer(gctx, g, deps, "Calibration Bot")
	player.onAbort = deps.Calibrator.Abort

	var res calibration.Result
	g.Go(func() error {
		defer player.stop()
		var err error
		res, err = deps.Calibrator.Run(gctx, deps.Config.PlayerID, player)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, calibration.ErrAborted) || errors.Is(err, context.Canceled) {
			player.println(deps.Messages.Text("calibration.aborted", nil, "Calibration aborted."))
			return nil
		}
		return err
	}
	player.println(res.Message)
	player.println(res.Profile.ID + "  " + res.Profile.Label)
	return nil
}

func history(ctx context.Context, deps *app.Deps) error {
	games, err := deps.Repo.GetRecentGames(ctx, deps.Config.PlayerID, 10)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println("No games recorded yet.")
		return nil
	}
	for _, g := range games {
		fmt.Printf("%s  %-20s %-5s %-5s %-12s %d plies\n",
			g.EndedAt.Format("2006-01-02 15:04"), g.BotID, g.PlayerColor, g.Result, g.ResultMethod, len(g.MovesUCI))
	}
	return nil
}
