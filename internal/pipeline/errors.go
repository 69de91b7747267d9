package pipeline

import "errors"

// Sentinel errors classifying pipeline failures. Stage errors wrap one of
// these so callers can branch on failure class without string parsing.
var (
	// ErrEnvironment indicates a missing project directory or package manager binary.
	ErrEnvironment = errors.New("environment error")
	// ErrBuild indicates a non-zero exit from the install or build command.
	ErrBuild = errors.New("build error")
	// ErrFilesystem indicates a copy, delete or mkdir failure while pruning or staging.
	ErrFilesystem = errors.New("filesystem error")
	// ErrVerification indicates the staged output failed the reference check.
	ErrVerification = errors.New("verification failed")
)
