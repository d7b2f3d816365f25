package api

import (
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/ide"
)

// Command is a configured command (aliased from the domain layer).
type Command = ide.Command

// Execution is one recorded run (aliased from the domain layer).
type Execution = history.Record

// CommandListResponse lists the commands of the loaded configuration.
type CommandListResponse struct {
	IDE      string    `json:"ide" example:"APIO" validate:"required"`
	Commands []Command `json:"commands" validate:"required"`
}

// RunFailedResponse is returned when a run aborts.
type RunFailedResponse struct {
	Error     string    `json:"error" example:"placeholder <board> is not defined" validate:"required"`
	Execution Execution `json:"execution" validate:"required"`
}

// HistoryResponse wraps recent executions, newest first.
type HistoryResponse struct {
	Executions []Execution `json:"executions" validate:"required"`
}
