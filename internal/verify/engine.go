// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify decides whether a drafted article may be published. It
// parses the embedded Python blocks, runs a couple of them in a sandbox and
// looks for external evidence that the topic exists.
package verify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/pdiddy/daily-digest/internal/logging"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// Defaults for Engine limits.
const (
	DefaultMaxRuns    = 2
	DefaultMaxCodeLen = 1000
)

// fallbackQueries bounds how many queries the no-key backends see.
const fallbackQueries = 3

// Error message prefixes. They end up in run reports read by editors.
const (
	msgSyntax     = "Ошибка Python-кода: "
	msgSandbox    = "Сниппет не исполнился в песочнице: "
	msgHTML       = "Парсинг HTML не удался: "
	msgNoEvidence = "Не найдено подтверждений темы по запросам: "
)

// Engine verifies drafted articles. A nil Syntax or Sandbox disables that
// check; no Primary backends disables corroboration.
type Engine struct {
	Syntax   SyntaxChecker
	Sandbox  Sandbox
	Primary  []Evidence
	Fallback []Evidence

	MaxRuns    int
	MaxCodeLen int
	MaxQueries int

	Logger *log.Logger
}

// NewEngine wires an engine from configuration.
func NewEngine(cfg types.VerifyConfig, sandbox Sandbox, client *http.Client, logger *log.Logger) *Engine {
	primary, fallback := BuildEvidence(cfg, client)
	return &Engine{
		Syntax:     PythonSyntax{},
		Sandbox:    sandbox,
		Primary:    primary,
		Fallback:   fallback,
		MaxRuns:    cfg.MaxRuns,
		MaxCodeLen: cfg.MaxCodeLen,
		MaxQueries: cfg.MaxQueries,
		Logger:     logger,
	}
}

// Verify checks content and reports every problem found. It never fails:
// collaborator outages become errors in the outcome or count as no evidence.
func (e *Engine) Verify(ctx context.Context, content, topic string) types.VerificationOutcome {
	logger := logging.Component(e.Logger, "verify")
	var out types.VerificationOutcome

	blocks, err := ExtractCode(content, LangPython)
	if err != nil {
		out.Errors = append(out.Errors, msgHTML+html.EscapeString(err.Error()))
	}
	e.checkSyntax(ctx, blocks, &out)
	e.runSnippets(ctx, blocks, &out, logger)
	e.corroborate(ctx, topic, &out, logger)

	out.Passed = len(out.Errors) == 0
	logger.Info("verification done",
		"passed", out.Passed, "errors", len(out.Errors), "blocks", len(blocks),
		"executed", out.Executed, "skipped", out.Skipped, "evidence", out.Corroboration)
	return out
}

func (e *Engine) checkSyntax(ctx context.Context, blocks []string, out *types.VerificationOutcome) {
	if e.Syntax == nil {
		return
	}
	for _, b := range blocks {
		if err := e.Syntax.Check(ctx, b); err != nil {
			out.Errors = append(out.Errors, msgSyntax+html.EscapeString(err.Error()))
		}
	}
}

// runSnippets considers the first MaxRuns blocks; skipped ones count
// toward the cap.
func (e *Engine) runSnippets(ctx context.Context, blocks []string, out *types.VerificationOutcome, logger *log.Logger) {
	if e.Sandbox == nil {
		return
	}
	maxRuns := orDefault(e.MaxRuns, DefaultMaxRuns)
	maxLen := orDefault(e.MaxCodeLen, DefaultMaxCodeLen)

	for i, b := range blocks {
		if i >= maxRuns {
			break
		}
		if utf8.RuneCountInString(b) > maxLen {
			logger.Debug("snippet skipped", "block", i, "reason", "too long")
			out.Skipped++
			continue
		}
		if op := Denied(b); op != "" {
			logger.Debug("snippet skipped", "block", i, "reason", op)
			out.Skipped++
			continue
		}
		out.Executed++
		res, err := e.Sandbox.Run(ctx, LangPython, b)
		if err != nil {
			logger.Warn("sandbox call failed", "block", i, "err", err)
			out.Errors = append(out.Errors, msgSandbox+html.EscapeString(err.Error()))
			continue
		}
		if res.ExitCode != 0 {
			out.Errors = append(out.Errors, msgSandbox+html.EscapeString(res.Output()))
		}
	}
}

// corroborate stops at the first backend and query reporting a non-zero
// count. Primary backends see every query; fallbacks see the first few
// plain ones.
func (e *Engine) corroborate(ctx context.Context, topic string, out *types.VerificationOutcome, logger *log.Logger) {
	if len(e.Primary) == 0 {
		return
	}
	queries := BuildQueries(topic, e.MaxQueries)
	if len(queries) == 0 {
		return
	}

	for _, q := range queries {
		for _, ev := range e.Primary {
			if e.found(ctx, ev, q, logger) {
				out.Corroboration = ev.Name() + ": " + q
				return
			}
		}
	}

	plain := make([]string, 0, fallbackQueries)
	for _, q := range queries {
		if len(plain) == fallbackQueries {
			break
		}
		if !strings.HasPrefix(q, "site:") {
			plain = append(plain, q)
		}
	}
	for _, ev := range e.Fallback {
		for _, q := range plain {
			if e.found(ctx, ev, q, logger) {
				out.Corroboration = ev.Name() + ": " + q
				return
			}
		}
	}

	out.Errors = append(out.Errors, msgNoEvidence+strings.Join(queries, "; "))
}

func (e *Engine) found(ctx context.Context, ev Evidence, query string, logger *log.Logger) bool {
	n, err := ev.Count(ctx, query)
	if err != nil {
		logger.Warn("evidence lookup failed", "backend", ev.Name(), "query", query, "err", err)
		return false
	}
	logger.Debug("evidence lookup", "backend", ev.Name(), "query", query, "count", n)
	return n > 0
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// String summarizes an engine's enabled checks.
func (e *Engine) String() string {
	return fmt.Sprintf("syntax=%t sandbox=%t primary=%d fallback=%d",
		e.Syntax != nil, e.Sandbox != nil, len(e.Primary), len(e.Fallback))
}
