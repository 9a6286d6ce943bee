package observability

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	jobmetrics "github.com/sapients/tracker/internal/jobs"
)

type ruleFile struct {
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

var seriesName = regexp.MustCompile(`sapients_[a-z_]+`)

func loadRules(t *testing.T) ruleFile {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "deploy", "prometheus", "alerts", "sapients.yml"))
	require.NoError(t, err)
	var rules ruleFile
	require.NoError(t, yaml.Unmarshal(data, &rules))
	require.Len(t, rules.Groups, 1)
	require.Equal(t, "sapients", rules.Groups[0].Name)
	return rules
}

// exportedSeries touches every vector so that each family shows up in Gather.
func exportedSeries(t *testing.T) map[string]bool {
	t.Helper()
	metrics := NewMetrics()
	jobs := jobmetrics.NewMetrics(metrics.Registerer())
	metrics.ObserveLogin("invalid")
	metrics.ObserveGuardDecision("lore", "edit", "forbidden")
	_ = jobs.Track("sessions_sweep").End(errors.New("boom"))
	jobs.AddSwept(1)
	jobs.AddPushOutcomes(1, 1, 1)

	families, err := metrics.Gatherer().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, fam := range families {
		names[fam.GetName()] = true
	}
	return names
}

func TestAlertRulesAreComplete(t *testing.T) {
	rules := loadRules(t)
	want := map[string]string{
		"LoginFailureSpike":   "warning",
		"ForbiddenSpike":      "warning",
		"SessionSweepFailing": "critical",
		"PushDeliveryFailing": "warning",
	}

	seen := make(map[string]bool)
	for _, rule := range rules.Groups[0].Rules {
		severity, ok := want[rule.Alert]
		require.Truef(t, ok, "unexpected rule %q", rule.Alert)
		seen[rule.Alert] = true

		assert.Equal(t, severity, rule.Labels["severity"], rule.Alert)
		assert.NotEmpty(t, rule.Expr, rule.Alert)
		assert.NotEmpty(t, rule.For, rule.Alert)
		assert.NotEmpty(t, rule.Annotations["summary"], rule.Alert)
		assert.NotEmpty(t, rule.Annotations["description"], rule.Alert)
	}
	assert.Len(t, seen, len(want))
}

func TestAlertRulesReferenceExportedSeries(t *testing.T) {
	rules := loadRules(t)
	exported := exportedSeries(t)
	for _, rule := range rules.Groups[0].Rules {
		for _, name := range seriesName.FindAllString(rule.Expr, -1) {
			assert.Truef(t, exported[name], "%s queries %s, which nothing exports", rule.Alert, name)
		}
	}
}

func TestAlertRunbooksExist(t *testing.T) {
	rules := loadRules(t)
	doc, err := os.ReadFile(filepath.Join("..", "..", "docs", "runbook.md"))
	require.NoError(t, err)
	for _, rule := range rules.Groups[0].Rules {
		link := rule.Annotations["runbook"]
		path, anchor, ok := strings.Cut(link, "#")
		require.Truef(t, ok, "%s runbook link lacks an anchor", rule.Alert)
		assert.Equal(t, "docs/runbook.md", path, rule.Alert)
		assert.Containsf(t, string(doc), "## "+anchor+"\n", "%s runbook section missing", rule.Alert)
	}
}
