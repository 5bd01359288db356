package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/park285/cheese-trainer/internal/app"
	"github.com/park285/cheese-trainer/internal/chess"
	"github.com/park285/cheese-trainer/internal/service/calibration"
	"github.com/park285/cheese-trainer/internal/service/game"
)

// terminalPlayer reads the human's moves from stdin.
type terminalPlayer struct {
	deps    *app.Deps
	botName string
	group   *errgroup.Group
	ctx     context.Context
	lines   <-chan string
	done    chan struct{}
	onAbort func()

	outMu sync.Mutex
}

func newTerminalPlayer(ctx context.Context, g *errgroup.Group, deps *app.Deps, botName string) *terminalPlayer {
	return &terminalPlayer{
		deps:    deps,
		botName: botName,
		group:   g,
		ctx:     ctx,
		lines:   readLines(),
		done:    make(chan struct{}),
	}
}

var (
	stdinOnce  sync.Once
	stdinLines chan string
)

// readLines starts the single stdin reader. The goroutine cannot be
// interrupted while blocked in a read and lives until EOF.
func readLines() <-chan string {
	stdinOnce.Do(func() {
		stdinLines = make(chan string)
		go func() {
			defer close(stdinLines)
			sc := bufio.NewScanner(os.Stdin)
			for sc.Scan() {
				stdinLines <- strings.TrimSpace(sc.Text())
			}
		}()
	})
	return stdinLines
}

func (p *terminalPlayer) stop() { close(p.done) }

func (p *terminalPlayer) println(s string) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Println(s)
}

func (p *terminalPlayer) prompt(s game.Session) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Print(p.deps.Messages.Text("cli.your_move", map[string]any{"Color": s.PlayerColor}, "Your move: "))
}

func (p *terminalPlayer) NextMove(ctx context.Context, s game.Session) (string, error) {
	for {
		p.prompt(s)
		var line string
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case l, ok := <-p.lines:
			if !ok {
				return "", game.ErrResigned
			}
			line = l
		}

		cmd, rest, _ := strings.Cut(line, " ")
		switch strings.ToLower(cmd) {
		case "":
			continue
		case "resign":
			return "", game.ErrResigned
		case "abort":
			if p.onAbort == nil {
				p.println("Nothing to abort; use resign.")
				continue
			}
			go p.onAbort()
			<-ctx.Done()
			return "", ctx.Err()
		case "fen":
			p.println(s.FEN)
		case "moves":
			moves, err := p.deps.Rules.LegalMoves(s.FEN)
			if err != nil {
				p.println(err.Error())
				continue
			}
			p.println(strings.Join(moves, " "))
		case "coach":
			p.askCoach(s, strings.TrimSpace(rest), false)
		case "analyze":
			p.askCoach(s, "", true)
		default:
			return line, nil
		}
	}
}

// askCoach answers in the background so the game never waits on the coach.
func (p *terminalPlayer) askCoach(s game.Session, msg string, analyze bool) {
	c := p.deps.Coach
	if c == nil {
		p.println("Coaching is disabled (set COACH_API_KEY).")
		return
	}
	fen, moves := s.FEN, append([]string(nil), s.Moves...)
	p.group.Go(func() error {
		var replies <-chan string
		if analyze {
			ch := make(chan string, 1)
			go func() { ch <- c.Analyze(p.ctx, fen, moves) }()
			replies = ch
		} else {
			replies = c.AskAsync(p.ctx, fen, msg)
		}
		select {
		case reply := <-replies:
			p.println("\nCoach: " + reply)
		case <-p.done:
		}
		return nil
	})
}

func (p *terminalPlayer) MoveRejected(_ game.Session, move string, _ error) {
	p.println(p.deps.Messages.Text("cli.illegal_move", map[string]any{"Move": move}, "Illegal move: "+move))
}

func (p *terminalPlayer) BotMoved(s game.Session, _ chess.Selection) {
	san := ""
	if len(s.SAN) > 0 {
		san = s.SAN[len(s.SAN)-1]
	}
	p.println(p.deps.Messages.Text("cli.bot_move", map[string]any{"Name": p.botName, "SAN": san}, p.botName+" plays "+san))
}

func (p *terminalPlayer) CalibrationGameStarted(index, total, rating int) {
	p.println(p.deps.Messages.Text("calibration.game_start",
		map[string]any{"Index": index, "Total": total, "Rating": rating},
		fmt.Sprintf("Calibration game %d of %d (%d)", index, total, rating)))
}

func (p *terminalPlayer) CalibrationGameFinished(index int, outcome game.Outcome, next calibration.State) {
	p.println(p.deps.Messages.Text("calibration.game_result",
		map[string]any{"Index": index, "Outcome": outcome, "Next": next.Current},
		fmt.Sprintf("Game %d: %s", index, outcome)))
}
