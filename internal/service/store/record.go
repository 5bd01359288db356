package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-trainer/internal/chess"
	"github.com/park285/cheese-trainer/internal/chess/rules"
	"github.com/park285/cheese-trainer/internal/domain"
	"github.com/park285/cheese-trainer/internal/service/game"
)

// RecordMeta carries the context a Session does not know about.
type RecordMeta struct {
	PlayerID  string
	RunID     string
	GameIndex int
}

// RecordFromSession converts a finished session into a persistable record.
func RecordFromSession(s game.Session, bot chess.BotProfile, meta RecordMeta) *domain.GameRecord {
	outcome, _ := s.Outcome()
	ended := s.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	duration := ended.Sub(s.StartedAt)
	if duration < 0 {
		duration = 0
	}
	rec := &domain.GameRecord{
		SessionUUID:      s.ID,
		PlayerID:         meta.PlayerID,
		BotID:            bot.ID,
		BotRating:        bot.EngineRating(),
		CalibrationRunID: meta.RunID,
		GameIndex:        meta.GameIndex,
		PlayerColor:      s.PlayerColor.String(),
		Result:           string(outcome),
		ResultMethod:     resultMethod(s),
		MovesUCI:         append([]string(nil), s.Moves...),
		MovesSAN:         append([]string(nil), s.SAN...),
		FinalFEN:         s.FEN,
		StartedAt:        s.StartedAt,
		EndedAt:          ended,
		Duration:         duration,
	}
	rec.PGN = BuildPGN(rec, bot.Name, s.StartFEN)
	return rec
}

func resultMethod(s game.Session) string {
	switch s.Status {
	case game.StatusResigned:
		return "resign"
	case game.StatusCheckmate:
		return "checkmate"
	case game.StatusStalemate:
		return "stalemate"
	case game.StatusDraw:
		return s.Terminal.String()
	default:
		return ""
	}
}

// pgnResult maps the player's outcome onto the board colors.
func pgnResult(rec *domain.GameRecord) string {
	switch rec.Result {
	case string(game.OutcomeDraw):
		return "1/2-1/2"
	case string(game.OutcomeWin):
		if rec.PlayerColor == rules.White.String() {
			return "1-0"
		}
		return "0-1"
	case string(game.OutcomeLoss):
		if rec.PlayerColor == rules.White.String() {
			return "0-1"
		}
		return "1-0"
	default:
		return "*"
	}
}

// BuildPGN renders the record as PGN. A non-standard start position adds
// the SetUp and FEN tags.
func BuildPGN(rec *domain.GameRecord, botName, startFEN string) string {
	if rec == nil {
		return ""
	}
	result := pgnResult(rec)
	date := rec.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	player := "Player"
	if strings.TrimSpace(rec.PlayerID) != "" {
		player = rec.PlayerID
	}
	if strings.TrimSpace(botName) == "" {
		botName = rec.BotID
	}
	white, black := player, botName
	if rec.PlayerColor == rules.Black.String() {
		white, black = botName, player
	}
	event := "Training Game"
	if rec.CalibrationRunID != "" {
		event = fmt.Sprintf("Calibration Game %d", rec.GameIndex)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("[Event \"%s\"]\n", event))
	b.WriteString("[Site \"Cheese Trainer\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(white)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(black)))
	if startFEN != "" && startFEN != rules.StartFEN {
		b.WriteString("[SetUp \"1\"]\n")
		b.WriteString(fmt.Sprintf("[FEN \"%s\"]\n", sanitizePGN(startFEN)))
	}
	if strings.TrimSpace(rec.ResultMethod) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(rec.ResultMethod)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(rec.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(rec.MovesSAN[i])))
		if i+1 < len(rec.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(rec.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
