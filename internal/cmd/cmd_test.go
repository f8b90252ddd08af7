package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/EricRabil/vue-cli/internal/inclusion"
)

func fixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"package.json": `{"name": "app", "browserslist": ["> 1%"]}`,
		"node_modules/@vue/cli-service/package.json":      `{"version": "5.0.8", "main": "lib/Service.js"}`,
		"node_modules/@vue/cli-service/lib/Service.js":    "",
		"node_modules/@vue/babel-preset-app/package.json": `{"version": "5.0.8"}`,
		"node_modules/@babel/core/package.json":           `{"version": "7.24.0"}`,
		"node_modules/babel-loader/package.json":          `{"version": "8.3.0", "main": "lib/index.js"}`,
		"node_modules/thread-loader/package.json":         `{"version": "3.0.4", "main": "dist/cjs.js"}`,
		"node_modules/lodash-es/index.js":                 "",
		"node_modules/react/index.js":                     "",
		"src/main.js":                                     "",
		"src/App.vue.js":                                  "",
		"src/types.ts":                                    "",
		"vue.config.yaml":                                 "transpileDependencies: [lodash-es]\nparallel: 2\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NODE_ENV", "")
	t.Setenv("VUE_CLI_TRANSPILE_BABEL_RUNTIME", "")
	t.Setenv("VUE_CLI_MODERN_BUILD", "")

	var stdout, stderr bytes.Buffer
	root := New()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(t.Context())
	return stdout.String(), err
}

func TestClassify(t *testing.T) {
	dir := fixture(t)

	out, err := execute(t, "classify", "-C", dir, "-c", filepath.Join(dir, "vue.config.yaml"), "--format", "json",
		"node_modules/lodash-es/index.js",
		"node_modules/react/index.js",
		"src/App.vue.js",
		"node_modules/@vue/cli-service/lib/Service.js",
	)
	if err != nil {
		t.Fatal(err)
	}

	var got []classification
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	exp := []classification{
		{Path: "node_modules/lodash-es/index.js", Decision: inclusion.Decision{Rule: inclusion.RuleTranspileDependency}},
		{Path: "node_modules/react/index.js", Decision: inclusion.Decision{Exclude: true, Rule: inclusion.RuleNodeModules}},
		{Path: "src/App.vue.js", Decision: inclusion.Decision{Rule: inclusion.RuleComponentScript}},
		{Path: "node_modules/@vue/cli-service/lib/Service.js", Decision: inclusion.Decision{Exclude: true, Rule: inclusion.RuleServiceInternal}},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatalf("unexpected classification (-want, +got):\n%s", diff)
	}
}

func TestClassifyInvalidConfig(t *testing.T) {
	dir := fixture(t)
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("transpileDependencies: [lodash-es, 42]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "classify", "-C", dir, "-c", bad, "src/main.js")
	if err == nil || !strings.Contains(err.Error(), "transpileDependencies only accepts") {
		t.Fatalf("expected invalid specifier error, got %v", err)
	}
}

func TestFingerprintAgainst(t *testing.T) {
	dir := fixture(t)
	stored := filepath.Join(t.TempDir(), "fingerprint.json")

	out, err := execute(t, "fingerprint", "-C", dir, "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stored, []byte(out), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, "fingerprint", "-C", dir, "--against", stored)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "fingerprint unchanged") {
		t.Fatalf("unexpected output: %s", out)
	}

	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"browserslist": ["defaults"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "fingerprint", "-C", dir, "--against", stored)
	if !errors.Is(err, errFingerprintChanged) {
		t.Fatalf("expected changed fingerprint, got %v", err)
	}
	var added, removed bool
	for _, line := range strings.Split(out, "\n") {
		added = added || strings.HasPrefix(line, "+") && strings.Contains(line, `"defaults"`)
		removed = removed || strings.HasPrefix(line, "-") && strings.Contains(line, `"> 1%"`)
	}
	if !added || !removed {
		t.Fatalf("expected a diff of the browserslist, got:\n%s", out)
	}
}

func TestScan(t *testing.T) {
	dir := fixture(t)
	metricsFile := filepath.Join(t.TempDir(), "metrics.prom")

	out, err := execute(t, "scan", "-C", dir, "-c", filepath.Join(dir, "vue.config.yaml"), "--mode", "production",
		"--exclude", "node_modules/@vue/**", "--format", "json", "--metrics-out", metricsFile)
	if err != nil {
		t.Fatal(err)
	}

	var got scanSummary
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	got.Results = nil

	exp := scanSummary{
		Files:    4,
		Compiled: 3,
		Skipped:  1,
		Workers:  2,
		Rules: map[string]int{
			inclusion.RuleTranspileDependency: 1,
			inclusion.RuleNodeModules:         1,
			inclusion.RuleComponentScript:     1,
			inclusion.RuleDefault:             1,
		},
	}
	if diff := cmp.Diff(exp, got); diff != "" {
		t.Fatalf("unexpected summary (-want, +got):\n%s", diff)
	}

	bs, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(bs), "transpile_decisions_total") {
		t.Fatalf("expected decision metrics, got:\n%s", bs)
	}
}

func TestScanNothingLeft(t *testing.T) {
	dir := fixture(t)

	_, err := execute(t, "scan", "-C", dir, "--include", "lib/**")
	if !errors.Is(err, errNoFilesLeft) {
		t.Fatalf("expected an empty filter result to fail, got %v", err)
	}
}

func TestConfig(t *testing.T) {
	dir := fixture(t)
	patch := filepath.Join(dir, "patch.json")
	if err := os.WriteFile(patch, []byte(`[{"op": "replace", "path": "/parallel", "value": false}, {"op": "add", "path": "/loaderPath", "value": "plugins"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		note string
		args []string
		exp  string
	}{
		{
			note: "merged",
			args: []string{"config", "-c", filepath.Join(dir, "vue.config.yaml")},
			exp:  "transpileDependencies:\n- lodash-es\nparallel: 2\n",
		},
		{
			note: "patched",
			args: []string{"config", "-c", filepath.Join(dir, "vue.config.yaml"), "--patch", patch},
			exp:  "transpileDependencies:\n- lodash-es\nloaderPath: plugins\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.note, func(t *testing.T) {
			out, err := execute(t, tc.args...)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.exp, out); diff != "" {
				t.Fatalf("unexpected configuration (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "schema")
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid([]byte(out)) || !strings.Contains(out, "transpileDependencies") {
		t.Fatalf("unexpected schema output:\n%s", out)
	}
}
