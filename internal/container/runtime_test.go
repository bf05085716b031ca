// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runPipedFunc  func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error)
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(_ context.Context, name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	if m.runPipedFunc != nil {
		return m.runPipedFunc(name, args, stdin, stdout, stderr)
	}
	return 0, nil
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name: "neither available",
			exec: &mockExecutor{
				availableBins: map[string]bool{},
				runnableCmds:  map[string]bool{},
			},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(context.Background(), tt.exec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), "no container runtime available") {
					t.Errorf("error should mention no runtime available, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name: "docker image exists",
			mkRT: func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			cmds: map[string]bool{"docker image inspect python:3.12-alpine": true},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			wantErr: true,
		},
		{
			name: "podman image exists",
			mkRT: func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			cmds: map[string]bool{"podman image exists python:3.12-alpine": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tt.mkRT(&mockExecutor{runnableCmds: tt.cmds})
			err := rt.ImageExists(context.Background(), "python:3.12-alpine")
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "python:3.12-alpine") {
					t.Fatalf("expected error naming the image, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunIsolatesNetwork(t *testing.T) {
	var gotArgs []string
	exec := &mockExecutor{runPipedFunc: func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
		if name != "docker" {
			t.Errorf("binary = %q, want docker", name)
		}
		gotArgs = args
		src, _ := io.ReadAll(stdin)
		io.WriteString(stdout, "ran: "+string(src))
		io.WriteString(stderr, "warning")
		return 3, nil
	}}
	rt := newDockerRuntime(exec)

	var out, errOut bytes.Buffer
	code, err := rt.Run(context.Background(), RunSpec{
		Image:     "python:3.12-alpine",
		Command:   []string{"python", "-"},
		Memory:    "128m",
		CPUs:      "0.5",
		PidsLimit: 64,
	}, strings.NewReader("print(1)"), &out, &errOut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	want := "run --rm -i --network none --memory 128m --cpus 0.5 --pids-limit 64 python:3.12-alpine python -"
	if got := strings.Join(gotArgs, " "); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
	if out.String() != "ran: print(1)" || errOut.String() != "warning" {
		t.Errorf("unexpected output %q / %q", out.String(), errOut.String())
	}
}

func TestRunFailureIsWrapped(t *testing.T) {
	exec := &mockExecutor{runPipedFunc: func(string, []string, io.Reader, io.Writer, io.Writer) (int, error) {
		return -1, errors.New("daemon not running")
	}}
	_, err := newPodmanRuntime(exec).Run(context.Background(), RunSpec{Image: "python:3.12-alpine"}, nil, io.Discard, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "running podman container python:3.12-alpine") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestEnsureImage(t *testing.T) {
	tests := []struct {
		name    string
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name: "present image is not pulled",
			cmds: map[string]bool{"docker image inspect python:3.12-alpine": true},
		},
		{
			name: "missing image is pulled",
			cmds: map[string]bool{"docker pull --quiet python:3.12-alpine": true},
		},
		{
			name:    "pull failure",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newDockerRuntime(&mockExecutor{runnableCmds: tt.cmds})
			err := EnsureImage(context.Background(), rt, "python:3.12-alpine")
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "pulling python:3.12-alpine with docker") {
					t.Fatalf("expected pull error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRuntimeName(t *testing.T) {
	exec := &mockExecutor{}
	if docker := newDockerRuntime(exec); docker.Name() != "docker" {
		t.Errorf("docker runtime name = %q, want %q", docker.Name(), "docker")
	}
	if podman := newPodmanRuntime(exec); podman.Name() != "podman" {
		t.Errorf("podman runtime name = %q, want %q", podman.Name(), "podman")
	}
}
