package domain

import "errors"

var (
	// ErrAssessmentNotFound is returned when no saved state exists for an assessment id.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrTeamSessionNotFound is returned when a team session has not been initialized.
	ErrTeamSessionNotFound = errors.New("team session not found")
	// ErrMemberNotFound is returned when a user tries to act before joining a team.
	ErrMemberNotFound = errors.New("member not found in team")
	// ErrConsensusSealed indicates the question already reached consensus and accepts no more input.
	ErrConsensusSealed = errors.New("consensus already reached for question")
	// ErrCatalogNotFound indicates the question catalog could not be loaded.
	ErrCatalogNotFound = errors.New("question catalog not found")
	// ErrInvalidAnswer indicates an answer payload could not be decoded.
	ErrInvalidAnswer = errors.New("invalid answer")
)
