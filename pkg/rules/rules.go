// Package rules adapts a chess engine into the narrow oracle the game
// service consults: initial position, side to move, and move application
// with terminal detection. Positions are exchanged as FEN strings.
package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/notnil/chess"

	"github.com/txn2/chessline/pkg/session"
)

var (
	// ErrIllegalMove is returned when the move is not legal in the position.
	ErrIllegalMove = errors.New("illegal move")

	// ErrInvalidPosition is returned when a stored position cannot be parsed.
	ErrInvalidPosition = errors.New("invalid position")
)

// Result is the outcome of applying a move.
type Result struct {
	// Position is the FEN after the move.
	Position string

	// Terminal is true when the game is over in the resulting position.
	Terminal bool

	// Checkmate is true when the terminal position is a checkmate.
	Checkmate bool

	// Method names how the game ended, empty when not terminal.
	Method string
}

// Oracle validates moves and reports game state.
type Oracle interface {
	// Initial returns the standard starting position.
	Initial() string

	// Turn returns the side to move in position.
	Turn(position string) (session.Color, error)

	// Apply plays from→to on position.
	Apply(position, from, to string) (Result, error)
}

// Chess implements Oracle with github.com/notnil/chess.
type Chess struct{}

// New returns a chess oracle.
func New() *Chess {
	return &Chess{}
}

// Initial returns the standard starting FEN.
func (*Chess) Initial() string {
	return chess.NewGame().Position().String()
}

// Turn returns the side to move.
func (c *Chess) Turn(position string) (session.Color, error) {
	game, err := c.load(position)
	if err != nil {
		return "", err
	}
	if game.Position().Turn() == chess.White {
		return session.White, nil
	}
	return session.Black, nil
}

// Apply plays the move given by its origin and destination squares.
// A pawn reaching the last rank promotes to a queen.
func (c *Chess) Apply(position, from, to string) (Result, error) {
	game, err := c.load(position)
	if err != nil {
		return Result{}, err
	}
	if game.Outcome() != chess.NoOutcome {
		return Result{}, fmt.Errorf("%w: game already over", ErrIllegalMove)
	}

	uci := strings.ToLower(from + to)
	if err := play(game, uci); err != nil {
		if errPromo := play(game, uci+"q"); errPromo != nil {
			return Result{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
		}
	}

	// The fifty-move draw ends the game without a claim.
	if game.Outcome() == chess.NoOutcome && slices.Contains(game.EligibleDraws(), chess.FiftyMoveRule) {
		if err := game.Draw(chess.FiftyMoveRule); err != nil {
			return Result{}, fmt.Errorf("applying fifty-move rule: %w", err)
		}
	}

	res := Result{Position: game.Position().String()}
	if game.Outcome() != chess.NoOutcome {
		res.Terminal = true
		res.Checkmate = game.Method() == chess.Checkmate
		res.Method = game.Method().String()
	}
	return res, nil
}

func (*Chess) load(position string) (*chess.Game, error) {
	opt, err := chess.FEN(position)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPosition, err)
	}
	return chess.NewGame(opt), nil
}

func play(game *chess.Game, uci string) error {
	move, err := chess.UCINotation{}.Decode(game.Position(), uci)
	if err != nil {
		return err
	}
	return game.Move(move)
}

// Verify interface compliance.
var _ Oracle = (*Chess)(nil)
