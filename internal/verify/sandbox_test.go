// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/daily-digest/internal/container"
	"github.com/pdiddy/daily-digest/pkg/types"
)

func TestDenied(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"print(1)", ""},
		{"import os\nprint(os.getcwd())", "import os"},
		{"import subprocess", "subprocess"},
		{"with open('x') as f: pass", "open("},
		{"requests.get('http://x')", "requests."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Denied(tt.src), tt.src)
	}
}

func TestPistonRun(t *testing.T) {
	var got pistonRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"run":{"code":1,"stdout":"partial\n","stderr":"NameError: x"}}`)
	}))
	defer ts.Close()

	p := &Piston{URL: ts.URL, Client: ts.Client()}
	res, err := p.Run(context.Background(), LangPython, "print(x)")
	require.NoError(t, err)

	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, "partial\nNameError: x", res.Output())
	assert.Equal(t, "python", got.Language)
	assert.Equal(t, "3.10.0", got.Version)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "main.py", got.Files[0].Name)
	assert.Equal(t, "print(x)", got.Files[0].Content)
}

func TestPistonMissingCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"run":{"stdout":"","stderr":"killed","signal":"SIGKILL"}}`)
	}))
	defer ts.Close()

	res, err := (&Piston{URL: ts.URL, Client: ts.Client()}).Run(context.Background(), LangPython, "while True: pass")
	require.NoError(t, err)
	assert.Equal(t, -1, res.ExitCode)
}

func TestPistonHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := (&Piston{URL: ts.URL, Client: ts.Client()}).Run(context.Background(), LangPython, "print(1)")
	require.Error(t, err)
	assert.Equal(t, "sandbox http 500", err.Error())
}

type fakeRuntime struct {
	spec   container.RunSpec
	stdin  string
	code   int
	stdout string
	err    error
}

func (f *fakeRuntime) Name() string                              { return "fake" }
func (f *fakeRuntime) Available(context.Context) bool            { return true }
func (f *fakeRuntime) ImageExists(context.Context, string) error { return nil }
func (f *fakeRuntime) Pull(context.Context, string) error        { return nil }
func (f *fakeRuntime) Run(_ context.Context, spec container.RunSpec, stdin io.Reader, stdout, _ io.Writer) (int, error) {
	f.spec = spec
	b, _ := io.ReadAll(stdin)
	f.stdin = string(b)
	io.WriteString(stdout, f.stdout)
	return f.code, f.err
}

func TestContainerRun(t *testing.T) {
	rt := &fakeRuntime{code: 0, stdout: "42\n"}
	c := &Container{Runtime: rt, Image: "python:3.12-alpine"}

	res, err := c.Run(context.Background(), LangPython, "print(42)")
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "42\n", res.Stdout)
	assert.Equal(t, "print(42)", rt.stdin)
	assert.Equal(t, "python:3.12-alpine", rt.spec.Image)
	assert.Equal(t, []string{"python", "-"}, rt.spec.Command)
	assert.Empty(t, rt.spec.Network)
}

func TestContainerRunErrors(t *testing.T) {
	c := &Container{Runtime: &fakeRuntime{err: errors.New("daemon down")}}
	_, err := c.Run(context.Background(), LangPython, "print(1)")
	assert.ErrorContains(t, err, "daemon down")

	_, err = c.Run(context.Background(), "ruby", "puts 1")
	assert.ErrorContains(t, err, "does not support ruby")
}

func TestNewSandbox(t *testing.T) {
	sb, err := NewSandbox(context.Background(), types.VerifyConfig{Sandbox: types.SandboxNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, sb)

	sb, err = NewSandbox(context.Background(), types.VerifyConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Piston{}, sb)

	_, err = NewSandbox(context.Background(), types.VerifyConfig{Sandbox: "wasm"}, nil)
	assert.ErrorContains(t, err, "unknown sandbox provider")
}
