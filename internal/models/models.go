package models

import (
	"fmt"
	"strings"
	"time"
)

// Format is the declared format of an uploaded document.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatPDF      Format = "pdf"
	FormatDocx     Format = "docx"
)

// Document holds extracted text on its way into the index. It only lives
// for the duration of the ingest request.
type Document struct {
	ID     string
	Name   string
	Format Format
	Source string
	Text   string
}

// Chunk is one indexed slice of a document.
type Chunk struct {
	ID           string
	DocumentID   string
	DocumentName string
	Index        int
	Text         string
}

// QueryMode selects the retrieval strategy for a question.
type QueryMode string

const (
	ModeHybrid QueryMode = "hybrid"
	ModeLocal  QueryMode = "local"
	ModeGlobal QueryMode = "global"
	ModeNaive  QueryMode = "naive"
)

// ParseMode validates a mode string from the UI.
func ParseMode(s string) (QueryMode, error) {
	switch QueryMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeHybrid:
		return ModeHybrid, nil
	case ModeLocal:
		return ModeLocal, nil
	case ModeGlobal:
		return ModeGlobal, nil
	case ModeNaive:
		return ModeNaive, nil
	}
	return "", fmt.Errorf("unknown query mode %q", s)
}

// ChatTurn is one question/answer pair in a session's history.
type ChatTurn struct {
	ID       string    `json:"id"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Mode     QueryMode `json:"mode"`
	AskedAt  time.Time `json:"asked_at"`
}
