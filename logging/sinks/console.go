package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"combo-snake/server/logging"
)

type ConsoleSink struct {
	logger   *log.Logger
	useColor bool
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	return &ConsoleSink{
		logger:   log.New(w, "", log.LstdFlags),
		useColor: cfg.UseColor,
	}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	severity := formatSeverity(event.Severity)
	if s.useColor {
		severity = colorizeSeverity(event.Severity, severity)
	}
	s.logger.Printf("[%s] tick=%d actor=%s severity=%s%s",
		event.Type, event.Tick, formatEntity(event.Actor), severity, formatPayload(event.Payload))
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func formatSeverity(sev logging.Severity) string {
	switch sev {
	case logging.SeverityDebug:
		return "debug"
	case logging.SeverityInfo:
		return "info"
	case logging.SeverityWarn:
		return "warn"
	case logging.SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	ansiReset  = "\x1b[0m"
	ansiGray   = "\x1b[90m"
	ansiYellow = "\x1b[33m"
	ansiRed    = "\x1b[31m"
)

func colorizeSeverity(sev logging.Severity, label string) string {
	switch sev {
	case logging.SeverityDebug:
		return ansiGray + label + ansiReset
	case logging.SeverityWarn:
		return ansiYellow + label + ansiReset
	case logging.SeverityError:
		return ansiRed + label + ansiReset
	default:
		return label
	}
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return fmt.Sprintf(" payload=%s", data)
}
