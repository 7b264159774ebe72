package ics

import "fmt"

// FetchError is a network/transport failure retrieving a feed.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", redactURL(e.URL), e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is a malformed calendar payload. The aggregator treats it
// the same as a FetchError: that feed contributes nothing.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", redactURL(e.URL), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
