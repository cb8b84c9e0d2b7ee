package tui

type state int

const (
	feedState state = iota
	helpState
	errorState
)
