package notify

import "fmt"

// Player-facing message texts.
const (
	MsgAlreadyInSession = `You are already in a game. To start a new one, leave your current game first by replying "leave".`
	MsgNoSuchCode       = "That isn't a valid game code, sorry."
	MsgSessionFull      = "This game already has two players. Check that you typed the game code correctly."
	MsgGameEnded        = "The game has been ended."
	MsgNotInSession     = "You are not in a game at the moment."
	MsgMalformedMove    = `That move is not in the right format. Try "move old_space to new_space", for example "move b1 to c3".`
	MsgNotYourTurn      = "It is not your turn. Wait for your opponent to make their move."
	MsgIllegalMove      = "That is not a valid move."
	MsgGameOver         = "The game is over. Thanks for playing."
)

const (
	helpInSession = "Valid commands:\n\n" +
		"move old_space to new_space: moves a piece\n" +
		"leave: leaves your current game\n" +
		"board: sends the current board"

	helpNoSession = "Valid commands:\n\n" +
		"start: creates a new game\n" +
		"join <code>: joins an existing game\n" +
		"board: sends the current board"
)

// Registered tells a creator how a friend joins their game.
func Registered(code string) string {
	return fmt.Sprintf(`You're registered, but still need someone to play against. `+
		`Ask a friend to send this page the message "join %s" to play against you.`, code)
}

// Instructions explains the clock and the move syntax. budget is the
// formatted starting clock, for example "60 minutes".
func Instructions(budget string) string {
	return fmt.Sprintf(`You have %s to play your turns. Your clock runs from the moment you read a board `+
		`until you reply with a valid move. To move, send "move old_space to new_space", `+
		`for example "move a2 to a4". To end the game early, send "leave".`, budget)
}

// StartMover is sent to the side that moves first.
func StartMover(color, budget string) string {
	return fmt.Sprintf("The game has started and you are the starting player.\n\nYou are playing %s.\n\n%s",
		color, Instructions(budget))
}

// StartWaiter is sent to the side that waits for the first move.
func StartWaiter(color, budget string) string {
	return fmt.Sprintf("The game has started and your opponent is the starting player.\n\nYou are playing %s.\n\n%s",
		color, Instructions(budget))
}

// Timeout reports that color ran out of time.
func Timeout(color string) string {
	return fmt.Sprintf("The game is over because %s ran out of time.", color)
}

// MoveAccepted confirms a move to the player who made it.
func MoveAccepted(next string, elapsed int, own, opponent string) string {
	return fmt.Sprintf("Move accepted and it's now %s's turn. It took you %d seconds, "+
		"which leaves you %s from when your next turn begins. Your opponent has %s remaining.",
		next, elapsed, own, opponent)
}

// YourTurn prompts the player on move.
func YourTurn(budget string) string {
	return fmt.Sprintf(`It is now your turn. Reply with "move old_space to new_space" to play, `+
		`for example "move a2 to a4". You have %s remaining, which pauses once you've sent a valid move.`, budget)
}

// Help lists the commands available to the sender.
func Help(inSession bool) string {
	if inSession {
		return helpInSession
	}
	return helpNoSession
}
