package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// CommandProvider shells out to a configured program for each request. The
// request is written to the program's stdin as a single JSON object and the
// program's stdout is taken as the generated text, either raw or as a JSON
// response with a "content" field. A non-zero exit is reported with the
// trailing stderr line as detail.
type CommandProvider struct {
	Name string
	Args []string
	Dir  string
}

// NewCommandProvider builds a provider around the given command line.
func NewCommandProvider(name string, args ...string) *CommandProvider {
	return &CommandProvider{Name: name, Args: args}
}

// Generate runs the command once. Deadlines and cancellation come from ctx;
// exec kills the process when the context ends.
func (p *CommandProvider) Generate(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("provider: encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	cmd.Dir = p.Dir
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		detail := lastLine(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Response{}, fmt.Errorf("provider: %s %s: %s", p.Name, req.Operation, detail)
	}

	return parseOutput(stdout.Bytes())
}

// parseOutput accepts either a bare text body or a JSON Response. Backends
// that only ever print text do not need to know about the envelope.
func parseOutput(out []byte) (Response, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return Response{}, fmt.Errorf("provider: command produced no output")
	}
	if trimmed[0] == '{' {
		var resp Response
		if err := json.Unmarshal(trimmed, &resp); err == nil && strings.TrimSpace(resp.Content) != "" {
			resp.Content = strings.TrimSpace(resp.Content)
			return resp, nil
		}
	}
	return Response{Content: string(trimmed)}, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
