package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// scriptPlugin writes a shell script plugin into a temp dir.
func scriptPlugin(t *testing.T, name, script string) *Plugin {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, name+".sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return &Plugin{
		Manifest: Manifest{
			Name:       name,
			Version:    "1.0.0",
			Executable: name + ".sh",
			Strategies: []string{name},
		},
		Path:       dir,
		Executable: path,
	}
}

func TestExecutor_Execute(t *testing.T) {
	p := scriptPlugin(t, "fixed", `cat >/dev/null
echo '{"success":true,"move":4,"reason":"always four"}'
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{
		Strategy: "fixed",
		Context:  json.RawMessage(`{"playerMove":3}`),
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Move == nil || *resp.Move != 4 {
		t.Errorf("expected move 4, got %v", resp.Move)
	}
	if resp.Reason != "always four" {
		t.Errorf("expected reason, got %q", resp.Reason)
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	// Echo the request back as the reason so the test can inspect it.
	p := scriptPlugin(t, "echo", `INPUT=$(cat | sed 's/"/\\"/g')
printf '{"success":true,"move":1,"reason":"%s"}' "$INPUT"
`)
	p.Manifest.Config = json.RawMessage(`{"aggression":2}`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{
		Strategy: "echo",
		Context:  json.RawMessage(`{"playerMove":5,"innings":2}`),
	})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	var got Request
	if err := json.Unmarshal([]byte(resp.Reason), &got); err != nil {
		t.Fatalf("plugin did not receive JSON: %v (%q)", err, resp.Reason)
	}
	if got.Strategy != "echo" {
		t.Errorf("expected strategy echo, got %q", got.Strategy)
	}
	if string(got.Config) != `{"aggression":2}` {
		t.Errorf("expected manifest config forwarded, got %s", got.Config)
	}

	var ctx map[string]int
	if err := json.Unmarshal(got.Context, &ctx); err != nil {
		t.Fatalf("context: %v", err)
	}
	if ctx["playerMove"] != 5 || ctx["innings"] != 2 {
		t.Errorf("unexpected context %v", ctx)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	p := scriptPlugin(t, "slow", `sleep 10
echo '{"success":true,"move":2}'
`)

	_, err := NewExecutor(100*time.Millisecond).Execute(context.Background(), p, &Request{Strategy: "slow"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	p := scriptPlugin(t, "sulky", `echo '{"success":false,"error":"no idea"}'
`)

	resp, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{Strategy: "sulky"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error != "no idea" {
		t.Errorf("expected error 'no idea', got %q", resp.Error)
	}
	if resp.Move != nil {
		t.Errorf("expected no move, got %v", *resp.Move)
	}
}

func TestExecutor_Execute_Failures(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "invalid json", script: "echo 'not valid json'\n"},
		{name: "non-zero exit", script: "echo 'boom' >&2\nexit 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := scriptPlugin(t, "broken", tt.script)
			if _, err := NewExecutor(5*time.Second).Execute(context.Background(), p, &Request{}); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestExecutor_CancelledContext(t *testing.T) {
	p := scriptPlugin(t, "slow", "sleep 10\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExecutor(5*time.Second).Execute(ctx, p, &Request{}); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestManifest_Supports(t *testing.T) {
	named := Manifest{Name: "copycat"}
	if !named.Supports("copycat") || named.Supports("other") {
		t.Error("manifest without strategies should answer for its own name only")
	}

	multi := Manifest{Name: "pack", Strategies: []string{"aggressive", "defensive"}}
	if !multi.Supports("defensive") {
		t.Error("expected defensive to be supported")
	}
	if multi.Supports("pack") {
		t.Error("listed strategies replace the name")
	}
}
