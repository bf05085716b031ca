// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/daily-digest/internal/container"
	"github.com/pdiddy/daily-digest/internal/httputil"
	"github.com/pdiddy/daily-digest/pkg/types"
)

// DefaultPistonURL is the public Piston execute endpoint.
const DefaultPistonURL = "https://emkc.org/api/v2/piston/execute"

const (
	pistonPythonVersion = "3.10.0"
	defaultRunTimeout   = 20 * time.Second
)

// DeniedOperations are substrings that keep a snippet out of the sandbox.
var DeniedOperations = []string{"import os", "import sys", "subprocess", "open(", "requests."}

// Denied reports the first deny-listed operation in src, or "".
func Denied(src string) string {
	for _, d := range DeniedOperations {
		if strings.Contains(src, d) {
			return d
		}
	}
	return ""
}

// Sandbox executes source code in isolation.
type Sandbox interface {
	Run(ctx context.Context, lang, src string) (types.ExecResult, error)
}

// Piston runs code through a Piston execute endpoint.
type Piston struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

type pistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
}

type pistonResponse struct {
	Run struct {
		Code   *int   `json:"code"`
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Signal string `json:"signal"`
	} `json:"run"`
}

// Run submits src once; there is no retry.
func (p *Piston) Run(ctx context.Context, lang, src string) (types.ExecResult, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(pistonRequest{
		Language: lang,
		Version:  pistonPythonVersion,
		Files:    []pistonFile{{Name: "main.py", Content: src}},
	})
	if err != nil {
		return types.ExecResult{}, fmt.Errorf("encoding sandbox request: %w", err)
	}
	url := p.URL
	if url == "" {
		url = DefaultPistonURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.ExecResult{}, fmt.Errorf("creating sandbox request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", httputil.DefaultUserAgent)

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return types.ExecResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return types.ExecResult{}, fmt.Errorf("sandbox http %d", resp.StatusCode)
	}

	var out pistonResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.ExecResult{}, fmt.Errorf("decoding sandbox response: %w", err)
	}
	code := -1
	if out.Run.Code != nil {
		code = *out.Run.Code
	}
	return types.ExecResult{ExitCode: code, Stdout: out.Run.Stdout, Stderr: out.Run.Stderr}, nil
}

// Container runs code in a throwaway local container without network.
type Container struct {
	Runtime container.Runtime
	Image   string
	Timeout time.Duration
}

// Run pipes src to the image's python interpreter.
func (c *Container) Run(ctx context.Context, lang, src string) (types.ExecResult, error) {
	if lang != LangPython {
		return types.ExecResult{}, fmt.Errorf("container sandbox does not support %s", lang)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	code, err := c.Runtime.Run(ctx, container.RunSpec{
		Image:     c.Image,
		Command:   []string{"python", "-"},
		Memory:    "128m",
		CPUs:      "0.5",
		PidsLimit: 64,
	}, strings.NewReader(src), &stdout, &stderr)
	if err != nil {
		return types.ExecResult{}, err
	}
	return types.ExecResult{ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// NewSandbox builds the configured sandbox; SandboxNone yields nil. The
// container provider requires a working docker or podman and pulls the
// sandbox image when it is missing.
func NewSandbox(ctx context.Context, cfg types.VerifyConfig, client *http.Client) (Sandbox, error) {
	switch cfg.Sandbox {
	case types.SandboxNone:
		return nil, nil
	case types.SandboxContainer:
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return nil, err
		}
		if err := container.EnsureImage(ctx, rt, cfg.SandboxImage); err != nil {
			return nil, err
		}
		return &Container{Runtime: rt, Image: cfg.SandboxImage, Timeout: cfg.SandboxTimeout}, nil
	case types.SandboxPiston, "":
		return &Piston{URL: cfg.PistonURL, Client: client, Timeout: cfg.SandboxTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown sandbox provider %q", cfg.Sandbox)
	}
}
