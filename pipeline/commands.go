package pipeline

import "github.com/trusttri/federation/entity"

// Command is a side effect a transform requests without performing.
// PreSend and PostReceive stay pure: they mutate the entity they were given
// and describe everything else as commands for the driver to execute.
type Command interface {
	isCommand()
}

// FetchProfile asks the driver to resolve a remote actor's profile.
type FetchProfile struct {
	// Identifier is the actor URI or user@domain handle to resolve.
	Identifier string
}

func (FetchProfile) isCommand() {}

// DispatchAccept asks the driver to decide on an inbound follow and, when
// accepted, deliver an Accept to the follower's private inbox.
type DispatchAccept struct {
	// Follow is the inbound follow the accept replies to.
	Follow *entity.Entity
}

func (DispatchAccept) isCommand() {}
