package testsupport

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce sync.Once
	haukPath  string
	buildErr  error
)

// BuildHauk builds the hauk binary once and returns its path.
func BuildHauk(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "hauk-bin-")
		if err != nil {
			buildErr = err
			return
		}

		haukPath = filepath.Join(binDir, "hauk")
		cmd := exec.Command("go", "build", "-o", haukPath, "./cmd/hauk")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build hauk: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return haukPath
}

// SetupScriptEnv configures common environment variables for testscript.
// It starts a fake backend for the script, exposed as HAUK_SERVER, that
// accepts the password in HAUK_TEST_PASSWORD.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("HAUK", BuildHauk(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := EnsureHomeDirs(homeDir); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)

	const password = "correct horse"
	server := StartFakeServer(password)
	env.Defer(server.Close)
	env.Setenv("HAUK_SERVER", server.BaseURL())
	env.Setenv("HAUK_TEST_PASSWORD", password)
	return nil
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
