package devjewels

import (
	"errors"
	"fmt"
)

var (
	// ErrFeed matches every FeedError via errors.Is.
	ErrFeed = errors.New("devjewels feed error")
	// ErrMissingDesignNo marks a record that carries no design number.
	ErrMissingDesignNo = errors.New("missing design_no")
	// ErrMalformedRecord marks a record that is not a JSON object of the expected shape.
	ErrMalformedRecord = errors.New("malformed record")
)

// FeedError is returned for any transport, status or decoding failure of a feed call.
type FeedError struct {
	Feed       string
	StatusCode int
	Cause      error
}

func (e *FeedError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("devjewels: %s feed returned status %d: %v", e.Feed, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("devjewels: %s feed: %v", e.Feed, e.Cause)
}

func (e *FeedError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrFeed) match any FeedError.
func (e *FeedError) Is(target error) bool { return target == ErrFeed }

// RecordError describes a single feed record rejected at the boundary.
type RecordError struct {
	Feed     string
	Index    int
	DesignNo string
	Err      error
}

func (e *RecordError) Error() string {
	if e.DesignNo != "" {
		return fmt.Sprintf("devjewels: %s record %d (%s): %v", e.Feed, e.Index, e.DesignNo, e.Err)
	}
	return fmt.Sprintf("devjewels: %s record %d: %v", e.Feed, e.Index, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }
