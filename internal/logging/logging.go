// Package logging provides categorized, structured logging for the planning
// pipeline. Every subsystem (llm, classify, decompose, validate, contextgen,
// checkpoint, orchestrator, loop, tracker) gets its own named *zap.SugaredLogger
// so log lines are attributable without grepping for prefixes.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Component names the subsystem emitting a log line.
type Component string

const (
	ComponentLLM          Component = "llm"
	ComponentClassify     Component = "classify"
	ComponentDecompose    Component = "decompose"
	ComponentValidate     Component = "validate"
	ComponentContextGen   Component = "contextgen"
	ComponentCheckpoint   Component = "checkpoint"
	ComponentOrchestrator Component = "orchestrator"
	ComponentLoop         Component = "loop"
	ComponentTracker      Component = "tracker"
	ComponentExecAgent    Component = "execagent"
	ComponentCLI          Component = "cli"
)

var (
	mu     sync.RWMutex
	base   *zap.Logger
	cached = make(map[Component]*zap.SugaredLogger)
)

// Init configures the process-wide base logger. debug enables debug-level
// output; jsonFormat switches the encoder from console to JSON (suitable for
// log aggregation). It is safe to call more than once (e.g. after reloading
// config); subsequent calls replace the base logger and clear the cache.
func Init(debug, jsonFormat bool) error {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if jsonFormat {
		cfg.Encoding = "json"
	} else {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	base = l
	cached = make(map[Component]*zap.SugaredLogger)
	return nil
}

// For returns the sugared logger for a component, lazily building the base
// logger with zap's production defaults (info level, JSON encoding) if Init was never
// called — tests and small CLI invocations should not have to call Init.
func For(c Component) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := cached[c]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		b, _ := zap.NewProduction()
		if b == nil {
			b = zap.NewNop()
		}
		base = b
	}
	if l, ok := cached[c]; ok {
		return l
	}
	l := base.Sugar().With("component", string(c))
	cached[c] = l
	return l
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}
