package uci

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEloCap    = 1500
	maxSkillLevel    = 20
	evaluationDepth  = 5
	mateScoreCP      = 30000
	defaultThinkTime = 500 * time.Millisecond
)

// Options is the full option set sent to a fresh engine handle.
type Options struct {
	MultiPV       int
	Threads       int
	HashMB        int
	LimitStrength bool
	Elo           int
	Contempt      int
	UseContempt   bool
	SkillLevel    int
}

// SkillLevel maps a rating onto the engine's 0-20 skill dial. The mapping is
// monotonic non-decreasing and clamps below at zero.
func SkillLevel(rating int) int {
	switch {
	case rating <= 500:
		return 0
	case rating <= 1000:
		return 2
	case rating <= 1500:
		return 5
	}
	level := (rating-1500)/100 + 10
	if level > maxSkillLevel {
		return maxSkillLevel
	}
	return level
}

// ThinkTime is the movetime budget handed to the engine for a rating.
func ThinkTime(rating int) time.Duration {
	switch {
	case rating <= 500:
		return 100 * time.Millisecond
	case rating <= 1000:
		return 200 * time.Millisecond
	case rating <= 1500:
		return 300 * time.Millisecond
	}
	return defaultThinkTime
}

func contemptFor(rating int) (int, bool) {
	switch {
	case rating <= 500:
		return -200, true
	case rating <= 1000:
		return -100, true
	case rating <= 1500:
		return -50, true
	}
	return 0, false
}

// OptionsForRating builds the handle options. UCI_Elo is capped at eloCap.
func OptionsForRating(rating, eloCap int) Options {
	if rating < 0 {
		rating = 0
	}
	if eloCap <= 0 {
		eloCap = DefaultEloCap
	}
	elo := rating
	if elo > eloCap {
		elo = eloCap
	}
	contempt, useContempt := contemptFor(rating)
	return Options{
		MultiPV:       1,
		Threads:       1,
		HashMB:        1,
		LimitStrength: true,
		Elo:           elo,
		Contempt:      contempt,
		UseContempt:   useContempt,
		SkillLevel:    SkillLevel(rating),
	}
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > maxSkillLevel {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	if opt.MultiPV <= 0 {
		return fmt.Errorf("multipv must be > 0: %d", opt.MultiPV)
	}
	if opt.Elo < 0 {
		return fmt.Errorf("elo must be >= 0: %d", opt.Elo)
	}
	return nil
}

func (opt Options) commands() []string {
	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name MultiPV value %d", opt.MultiPV),
		fmt.Sprintf("setoption name Threads value %d", threads),
		fmt.Sprintf("setoption name Hash value %d", opt.HashMB),
		fmt.Sprintf("setoption name UCI_LimitStrength value %t", opt.LimitStrength),
		fmt.Sprintf("setoption name UCI_Elo value %d", opt.Elo),
	}
	if opt.UseContempt {
		cmds = append(cmds, fmt.Sprintf("setoption name Contempt value %d", opt.Contempt))
	}
	cmds = append(cmds, fmt.Sprintf("setoption name Skill Level value %d", opt.SkillLevel))
	return cmds
}

func buildPositionCommand(fen string) string {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return "position startpos"
	}
	return "position fen " + fen
}

func buildGoCommand(depth int, moveTime time.Duration) (string, error) {
	args := []string{"go"}
	if depth > 0 {
		args = append(args, "depth", strconv.Itoa(depth))
	}
	if ms := moveTime.Milliseconds(); ms > 0 {
		args = append(args, "movetime", strconv.FormatInt(ms, 10))
	}
	if len(args) == 1 {
		return "", fmt.Errorf("no search limits specified")
	}
	return strings.Join(args, " "), nil
}

// searchTimeout is the default wait for a bestmove when the caller gives no budget.
func searchTimeout(depth int, moveTime time.Duration) time.Duration {
	if moveTime > 0 {
		return (moveTime + 2*time.Second) * 3
	}
	if depth > 0 {
		base := time.Duration(depth) * 300 * time.Millisecond
		if base < 6*time.Second {
			base = 6 * time.Second
		}
		return base
	}
	return 6 * time.Second
}

// parseScore extracts the centipawn score from an info line. Mate scores saturate.
func parseScore(line string) (int, bool) {
	parts := strings.Fields(line)
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] != "score" {
			continue
		}
		v, err := strconv.Atoi(parts[i+2])
		if err != nil {
			return 0, false
		}
		switch parts[i+1] {
		case "cp":
			return v, true
		case "mate":
			if v >= 0 {
				return mateScoreCP, true
			}
			return -mateScoreCP, true
		}
		return 0, false
	}
	return 0, false
}

func parseBestMove(line string) (string, bool) {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[0] != "bestmove" {
		return "", false
	}
	if parts[1] == "(none)" || parts[1] == "0000" {
		return "", false
	}
	return parts[1], true
}
