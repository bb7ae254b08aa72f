// Package helpertest re-executes the test binary as a scripted stand-in for
// the external download helper.
//
// A test package using it declares
//
//	func TestHelperProcess(t *testing.T) { helpertest.Run() }
//
// and builds its launcher with Launcher.
package helpertest

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chanomhub/gamedl/internal/helper"
)

const (
	envWant   = "GO_WANT_HELPER_PROCESS"
	envScript = "GAMEDL_HELPER_SCRIPT"
	envRecord = "GAMEDL_HELPER_RECORD"
)

// Launcher returns a launcher whose helper plays script line by line.
//
// Lines are written to stdout as-is after "{id}" is replaced by the download
// id of the start command. "stderr:<text>" writes to stderr, "sleep:<dur>"
// pauses and "exit:<code>" ends the process. Cancel commands play nothing.
func Launcher(script ...string) *helper.Launcher {
	return &helper.Launcher{
		Binary: os.Args[0],
		Args:   Args(),
		Env:    Env(script...),
	}
}

// Args are the arguments that make the test binary run TestHelperProcess.
func Args() []string {
	return []string{"-test.run=^TestHelperProcess$", "--"}
}

// Env returns the KEY=value pairs that select script for the helper.
func Env(script ...string) []string {
	return []string{
		envWant + "=1",
		envScript + "=" + strings.Join(script, "\n"),
	}
}

// Recording makes every helper started by l append its JSON argument to path.
func Recording(l *helper.Launcher, path string) *helper.Launcher {
	l.Env = append(l.Env, envRecord+"="+path)
	return l
}

// Recorded returns the arguments appended to path by Recording helpers.
func Recorded(path string) []string {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Run plays the scripted helper and exits when the binary was started by a
// Launcher. Otherwise it returns immediately.
func Run() {
	if os.Getenv(envWant) != "1" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}

	payload := ""
	if len(args) > 0 {
		payload = args[len(args)-1]
	}

	if path := os.Getenv(envRecord); path != "" {
		record(path, payload)
	}

	var cmd struct {
		Action     string `json:"action"`
		DownloadID string `json:"downloadId"`
	}
	_ = json.Unmarshal([]byte(payload), &cmd)

	if cmd.Action == helper.ActionCancel {
		os.Exit(0)
	}

	for _, line := range strings.Split(os.Getenv(envScript), "\n") {
		line = strings.ReplaceAll(line, "{id}", cmd.DownloadID)

		switch {
		case line == "":
		case strings.HasPrefix(line, "exit:"):
			code, _ := strconv.Atoi(strings.TrimPrefix(line, "exit:"))
			os.Exit(code)
		case strings.HasPrefix(line, "sleep:"):
			d, _ := time.ParseDuration(strings.TrimPrefix(line, "sleep:"))
			time.Sleep(d)
		case strings.HasPrefix(line, "stderr:"):
			fmt.Fprintln(os.Stderr, strings.TrimPrefix(line, "stderr:"))
		default:
			fmt.Fprintln(os.Stdout, line)
		}
	}

	os.Exit(0)
}

func record(path, payload string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.WriteString(payload + "\n")
}
