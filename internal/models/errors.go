package models

import "errors"

// Sentinel errors for the retrieval core. Callers match with errors.Is.
var (
	// ErrSessionNotFound: a query hit a session with no index. Upload first.
	ErrSessionNotFound = errors.New("session not found")
	// ErrIndexBuild: embedding/chunk mismatch or index write failure during
	// upload. The upload fails entirely; no partial index persists.
	ErrIndexBuild = errors.New("index build failed")
	// ErrGeneration: answer synthesis failed. The query fails with no partial answer.
	ErrGeneration = errors.New("answer generation failed")
	// ErrModeUnsupported: unknown search mode, rejected before any retrieval work.
	ErrModeUnsupported = errors.New("unsupported search mode")
)
