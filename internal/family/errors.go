package family

import "errors"

// Domain errors. Handlers branch on these to pick a status code, so every
// validation failure a caller can act on gets its own sentinel.
var (
	ErrNotFound       = errors.New("not found")
	ErrVoteClosed     = errors.New("vote has ended")
	ErrVoteInactive   = errors.New("vote is not active")
	ErrNotAssignee    = errors.New("only the assignee can complete this mission")
	ErrNotVerifier    = errors.New("the assignee cannot verify their own mission")
	ErrBadTransition  = errors.New("mission is not in a state that allows this transition")
	ErrNotOptionOwner = errors.New("only the option creator or the vote creator can remove an option")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrGameNotActive  = errors.New("game is not active")
	ErrGameActive     = errors.New("game is already active")
	ErrNotEnough      = errors.New("at least two players are required")
	ErrInvalidMove    = errors.New("invalid move")
	ErrDuplicateWord  = errors.New("word was already used")
	ErrAlreadyFlipped = errors.New("card is already face up or matched")
	ErrAlreadyTried   = errors.New("player already answered this question")
)
