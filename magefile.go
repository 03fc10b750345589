//go:build mage

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	CmdDir     = "cmd/splist"
	BuildDir   = "bin"
	BinaryName = "splist"
)

// tools are installed by Bootstrap and checked before the targets that need them.
var tools = map[string]string{
	"goimports":     "golang.org/x/tools/cmd/goimports@latest",
	"staticcheck":   "honnef.co/go/tools/cmd/staticcheck@latest",
	"golangci-lint": "github.com/golangci/golangci-lint/cmd/golangci-lint@latest",
	"dlv":           "github.com/go-delve/delve/cmd/dlv@latest",
	"govulncheck":   "golang.org/x/vuln/cmd/govulncheck@latest",
}

// run executes a command attached to the terminal. env entries are added to
// the inherited environment.
func run(env []string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout, cmd.Stderr, cmd.Stdin = os.Stdout, os.Stderr, os.Stdin
	return cmd.Run()
}

func capture(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return strings.TrimSpace(buf.String()), err
}

func requireTools(names ...string) error {
	for _, name := range names {
		if _, err := exec.LookPath(name); err != nil {
			return fmt.Errorf("%s not found; run 'mage bootstrap' (%s)", name, tools[name])
		}
	}
	return nil
}

func binaryPath() string {
	name := BinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(BuildDir, name)
}

// cliArgs appends the optional schema and environment overrides taken from
// SCHEMA and SP_ENV to a splist invocation.
func cliArgs(args ...string) []string {
	if schema := os.Getenv("SCHEMA"); schema != "" {
		args = append(args, "--schema", schema)
	}
	if env := os.Getenv("SP_ENV"); env != "" {
		args = append(args, "--environment", env)
	}
	return args
}

// raceFlags returns the env and test flags for the race detector, none when NO_RACE=1.
func raceFlags() ([]string, []string) {
	if os.Getenv("NO_RACE") == "1" {
		return nil, nil
	}
	return []string{"CGO_ENABLED=1"}, []string{"-race"}
}

// Bootstrap downloads module dependencies and installs the lint, debug and
// vulnerability tooling.
func Bootstrap() error {
	if err := run(nil, "go", "mod", "download", "all"); err != nil {
		return err
	}
	for _, pkg := range tools {
		if err := run(nil, "go", "install", pkg); err != nil {
			return err
		}
	}
	return nil
}

// Build compiles splist into ./bin.
func Build() error {
	if err := os.MkdirAll(BuildDir, 0o755); err != nil {
		return err
	}
	return run(nil, "go", "build", "-trimpath", "-buildvcs=false", "-ldflags", "-s -w",
		"-o", binaryPath(), "./"+CmdDir)
}

// Serve starts the list inspector from source. SCHEMA and SP_ENV override the
// schema file and the deployment environment.
func Serve() error {
	return run(nil, "go", append([]string{"run", "./" + CmdDir}, cliArgs("serve")...)...)
}

// Lists prints the lists declared in the schema file, which also validates it.
func Lists() error {
	return run(nil, "go", append([]string{"run", "./" + CmdDir}, cliArgs("lists")...)...)
}

// Debug runs the inspector under a headless delve on :2345.
func Debug() error {
	if err := requireTools("dlv"); err != nil {
		return err
	}
	args := []string{"debug", "./" + CmdDir, "--headless", "--listen=:2345", "--api-version=2", "--accept-multiclient", "--"}
	return run(nil, "dlv", append(args, cliArgs("serve")...)...)
}

// Test runs the unit tests with the race detector. NO_RACE=1 skips it.
func Test() error {
	env, flags := raceFlags()
	return run(env, "go", append(append([]string{"test"}, flags...), "./...")...)
}

// Cover writes coverage.out and renders coverage.html.
func Cover() error {
	env, flags := raceFlags()
	args := append(append([]string{"test"}, flags...), "-coverprofile=coverage.out", "./...")
	if err := run(env, "go", args...); err != nil {
		return err
	}
	fmt.Println("coverage report: coverage.html")
	return run(nil, "go", "tool", "cover", "-html=coverage.out", "-o", "coverage.html")
}

// Lint runs go vet, staticcheck and golangci-lint.
func Lint() error {
	if err := requireTools("staticcheck", "golangci-lint"); err != nil {
		return err
	}
	for _, c := range [][]string{{"go", "vet", "./..."}, {"staticcheck", "./..."}, {"golangci-lint", "run"}} {
		if err := run(nil, c[0], c[1:]...); err != nil {
			return err
		}
	}
	return nil
}

// Vuln checks dependencies for known vulnerabilities.
func Vuln() error {
	if err := requireTools("govulncheck"); err != nil {
		return err
	}
	return run(nil, "govulncheck", "./...")
}

// Fmt rewrites sources with gofmt and goimports.
func Fmt() error {
	if err := run(nil, "go", "fmt", "./..."); err != nil {
		return err
	}
	return run(nil, "goimports", "-w", ".")
}

// FmtCheck fails when any file needs gofmt or goimports.
func FmtCheck() error {
	var problems []string
	for _, tool := range []string{"gofmt", "goimports"} {
		if files, _ := capture(tool, "-l", "."); files != "" {
			problems = append(problems, "needs "+tool+":\n"+files)
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "\n\n"))
	}
	return nil
}

// TidyCheck fails when go mod tidy changes go.mod or go.sum.
func TidyCheck() error {
	before, _ := capture("git", "status", "--porcelain", "--", "go.mod", "go.sum")
	if err := run(nil, "go", "mod", "tidy"); err != nil {
		return err
	}
	after, _ := capture("git", "status", "--porcelain", "--", "go.mod", "go.sum")
	if before != after {
		diff, _ := capture("git", "--no-pager", "diff", "--", "go.mod", "go.sum")
		return fmt.Errorf("go.mod/go.sum not tidy:\n%s", diff)
	}
	return nil
}

// Clean removes binaries, coverage output and the snapshot database with its
// WAL files.
func Clean() error {
	targets := []string{BuildDir, "coverage.out", "coverage.html"}
	db := os.Getenv("STORAGE_DB_PATH")
	if db == "" {
		db = "spmodel.db"
	}
	matches, _ := filepath.Glob(db + "*")
	for _, path := range append(targets, matches...) {
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}

// Verify runs every check a change must pass before review.
func Verify() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"format", FmtCheck},
		{"tidy", TidyCheck},
		{"lint", Lint},
		{"vuln", Vuln},
		{"build", Build},
		{"test", Test},
	}
	for _, s := range steps {
		fmt.Printf("==> %s\n", s.name)
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	fmt.Println("all checks passed")
	return nil
}
