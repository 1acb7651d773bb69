package services

import "errors"

// Shared errors across services, grouped by how the HTTP layer maps them.
var (
	// Not found
	ErrNotFound           = errors.New("requested resource not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrUserNotFound       = errors.New("user not found")

	// Validation
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrInvalidSide            = errors.New("side must be left or right")
	ErrInvalidMode            = errors.New("unknown match mode")
	ErrInvalidStrategy        = errors.New("unknown bot strategy")

	// Capacity
	ErrSessionFull       = errors.New("session already has two players")
	ErrPlayerBusy        = errors.New("player already has an active session")
	ErrTournamentFull    = errors.New("tournament registration is full")
	ErrMatchIDConflict   = errors.New("match id already exists")
	ErrAlreadyRegistered = errors.New("user is already registered for this tournament")

	// State
	ErrSessionNotWaiting     = errors.New("session is not accepting players")
	ErrSessionNotPlaying     = errors.New("session is not running")
	ErrTournamentNotWaiting  = errors.New("tournament is not open for registration")
	ErrTournamentNotActive   = errors.New("tournament is not active")
	ErrMatchAlreadySettled   = errors.New("match result was already submitted")
	ErrWinnerNotInMatch      = errors.New("winner is not a player of this match")
	ErrNotEnoughParticipants = errors.New("not enough participants to start the tournament")

	// Authentication / authorization
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthEmailTaken         = errors.New("email is already taken")
	ErrAuthNicknameTaken      = errors.New("nickname is already taken")
	ErrForbiddenOperation     = errors.New("operation not allowed for the current user")
	ErrOnlyCreatorCanStart    = errors.New("only the tournament creator can start it")

	// Collaborators
	ErrCollaboratorFailed = errors.New("external collaborator call failed")
)
