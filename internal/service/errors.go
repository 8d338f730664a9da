package service

import "errors"

// Lookup failures handlers translate into 404s, and state-machine guards the
// worker callbacks surface as 409s.
var (
	ErrProjectNotFound = errors.New("project not found")
	ErrVariantNotFound = errors.New("variant not found")
	ErrJobNotFound     = errors.New("render job not found")
	ErrJobTerminal     = errors.New("render job already finished")
)
