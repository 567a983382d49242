package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	jobmetrics "github.com/anotherstories/storehq/internal/jobs"
)

type alertFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Alert       string            `yaml:"alert"`
			Expr        string            `yaml:"expr"`
			For         string            `yaml:"for"`
			Labels      map[string]string `yaml:"labels"`
			Annotations map[string]string `yaml:"annotations"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

var metricName = regexp.MustCompile(`storehq_[a-z_]+`)

func readRepoFile(t *testing.T, parts ...string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(append([]string{"..", ".."}, parts...)...))
	if err != nil {
		t.Fatalf("read %s: %v", filepath.Join(parts...), err)
	}
	return data
}

// exportedNames exercises every collector once and returns the metric
// family names the processes expose.
func exportedNames(t *testing.T) map[string]bool {
	t.Helper()
	m := NewMetrics()
	jm := jobmetrics.NewMetrics(m.Registerer())
	_ = jm.Track("reports:warmup").End(nil)
	_ = jm.Track("sales:cleanup").End(errors.New("boom"))
	jm.AddDeleted("sales:cleanup", 1)
	jm.AddWarmed("reports:warmup", 1)
	m.Middleware(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	families, err := m.reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestAlertRules(t *testing.T) {
	var file alertFile
	if err := yaml.Unmarshal(readRepoFile(t, "deploy", "prometheus", "alerts", "storehq.yml"), &file); err != nil {
		t.Fatalf("parse alerts: %v", err)
	}
	if len(file.Groups) != 1 || file.Groups[0].Name != "storehq" {
		t.Fatalf("expected one storehq group, got %+v", file.Groups)
	}
	runbook := string(readRepoFile(t, "docs", "runbook.md"))
	exported := exportedNames(t)

	severity := map[string]string{
		"HighErrorRate":    "critical",
		"SlowReports":      "warning",
		"JobFailures":      "warning",
		"WarmupNotRunning": "warning",
	}
	rules := file.Groups[0].Rules
	if len(rules) != len(severity) {
		t.Fatalf("expected %d rules, got %d", len(severity), len(rules))
	}
	for _, rule := range rules {
		want, ok := severity[rule.Alert]
		if !ok {
			t.Fatalf("unexpected rule %q", rule.Alert)
		}
		if rule.Labels["severity"] != want {
			t.Errorf("%s: severity %q, want %q", rule.Alert, rule.Labels["severity"], want)
		}
		if rule.For == "" || rule.Annotations["summary"] == "" || rule.Annotations["description"] == "" {
			t.Errorf("%s: for, summary and description are required", rule.Alert)
		}

		doc, anchor, ok := strings.Cut(rule.Annotations["runbook"], "#")
		if !ok || doc != "docs/runbook.md" || !strings.Contains(runbook, "## "+anchor) {
			t.Errorf("%s: runbook %q has no matching section", rule.Alert, rule.Annotations["runbook"])
		}

		for _, name := range metricName.FindAllString(rule.Expr, -1) {
			base := strings.TrimSuffix(name, "_bucket")
			if !exported[base] {
				t.Errorf("%s: expression uses %s, which no collector exports", rule.Alert, name)
			}
		}
	}
}
