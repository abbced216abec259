package model

import "github.com/pkg/errors"

var (
	ErrNoBoundary     = errors.New("no day boundary block found")
	ErrNoNextBoundary = errors.New("no next day boundary available to close the last analyzed day")
	ErrEmptyRoster    = errors.New("validator roster is empty")
	ErrNoRoute        = errors.New("no price route")
)
