package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kpumuk/swift-weaver/internal/syntaxmap"
)

const (
	envSourceKittenBin      = "SOURCEKITTEN_ORACLE_BIN"
	envSourceKittenRequired = "SOURCEKITTEN_ORACLE_REQUIRED"
)

// SourceKittenOracle runs the `sourcekitten` binary as a syntax map reference.
type SourceKittenOracle struct {
	Bin      string
	Required bool
}

// SourceKittenOracleFromEnv builds oracle configuration from environment variables.
func SourceKittenOracleFromEnv() SourceKittenOracle {
	bin := strings.TrimSpace(os.Getenv(envSourceKittenBin))
	if bin == "" {
		bin = "sourcekitten"
	}
	required := strings.TrimSpace(os.Getenv(envSourceKittenRequired))
	return SourceKittenOracle{
		Bin:      bin,
		Required: required == "1" || strings.EqualFold(required, "true"),
	}
}

// RequireSourceKittenOracle returns a configured oracle or skips the test when unavailable.
func RequireSourceKittenOracle(t testing.TB) SourceKittenOracle {
	t.Helper()

	oracle := SourceKittenOracleFromEnv()
	if _, err := exec.LookPath(oracle.Bin); err != nil {
		if oracle.Required {
			t.Fatalf("sourcekitten oracle unavailable: %v", err)
		}
		t.Skipf("skipping sourcekitten oracle test: %v", err)
	}
	return oracle
}

// SyntaxMap runs `sourcekitten syntax --file path` and decodes its token list.
func (o SourceKittenOracle) SyntaxMap(ctx context.Context, path string) (syntaxmap.Map, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(path) == "" {
		return syntaxmap.Map{}, errors.New("empty path")
	}

	//nolint:gosec // Test helper intentionally executes a configured local sourcekitten binary.
	cmd := exec.CommandContext(ctx, o.Bin, "syntax", "--file", filepath.Clean(path))
	out, err := cmd.Output()
	if err != nil {
		return syntaxmap.Map{}, fmt.Errorf("run %s syntax: %w", o.Bin, err)
	}

	var tokens []syntaxmap.Token
	if err := json.Unmarshal(out, &tokens); err != nil {
		return syntaxmap.Map{}, fmt.Errorf("decode %s syntax output: %w", o.Bin, err)
	}
	return syntaxmap.Map{Tokens: tokens}, nil
}
