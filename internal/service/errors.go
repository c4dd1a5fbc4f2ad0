package service

import "errors"

var (
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrTaskNotFound       = errors.New("task not found")
	ErrClientNotFound     = errors.New("client not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAlreadyAssigned    = errors.New("task already assigned to this client")

	ErrGroupNotFound   = errors.New("planning group not found")
	ErrNotParticipant  = errors.New("not a participant of this group")
	ErrNotOwner        = errors.New("only the group owner can do this")
	ErrAlreadyVoted    = errors.New("already voted for this idea")
	ErrNoVote          = errors.New("no vote to retract")
	ErrAlreadyPromoted = errors.New("idea is already promoted")

	ErrRecipientNotFound = errors.New("recipient not found")
)
