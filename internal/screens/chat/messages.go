package chat

import "github.com/abhisek/algotutor/internal/agent"

// replyMsg carries the outcome of one tutor turn.
type replyMsg struct {
	Reply agent.Reply
	Err   error
}

// resetDoneMsg is sent once the session has been reset.
type resetDoneMsg struct {
	Err error
}
