package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/clausewise/internal/model"
)

const sampleNDA = `MUTUAL NON-DISCLOSURE AGREEMENT
1. The Recipient shall protect the Confidential Information within 30 days.
2. The Discloser may terminate this Agreement upon written notice.
3. Any dispute is resolved as described in Section 2.`

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	require.NoError(t, registerDefaults(v, model.DefaultConfig()))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)

	def := model.DefaultConfig()
	assert.Equal(t, def.Classifier.CallTimeout, cfg.Classifier.CallTimeout)
	assert.Equal(t, def.Store, cfg.Store)
	assert.Equal(t, def.Risk.Calibrations, cfg.Risk.Calibrations)
	assert.Equal(t, "NDA", cfg.Risk.DefaultContractType)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("CLAUSEWISE_LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CLAUSEWISE_CLASSIFIER_CALL_TIMEOUT", "3s")
	t.Setenv("CLAUSEWISE_CONCURRENCY_CLAUSE_WORKERS", "7")
	t.Setenv("CLAUSEWISE_STORE_DRIVER", "postgres")

	cfg, err := loadConfig(newTestViper(t))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Classifier.CallTimeout)
	assert.Equal(t, 7, cfg.Concurrency.ClauseWorkers)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
risk:
  default_contract_type: msa
  calibrations:
    NDA:
      floor: 5
      ceiling: 50
      scale: 10
log:
  level: warn
`), 0o600))

	v := newTestViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "msa", cfg.Risk.DefaultContractType)
	assert.Equal(t, "warn", cfg.Log.Level)
	cal, ok := cfg.Risk.CalibrationFor("nda")
	require.True(t, ok)
	assert.Equal(t, model.Calibration{Floor: 5, Ceiling: 50, Scale: 10}, cal)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("CLAUSEWISE_STORE_DRIVER", "mongo")

	_, err := loadConfig(newTestViper(t))
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestUpperKeys(t *testing.T) {
	in := map[string]model.Calibration{
		"NDA": {Floor: 0, Ceiling: 20, Scale: 20},
		"nda": {Floor: 1, Ceiling: 2, Scale: 3},
		"msa": {Floor: 70, Ceiling: 85, Scale: 15},
	}
	out := upperKeys(in)
	assert.Equal(t, map[string]model.Calibration{
		"NDA": {Floor: 1, Ceiling: 2, Scale: 3},
		"MSA": {Floor: 70, Ceiling: 85, Scale: 15},
	}, out)
}

func TestApplyProviderEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "claude"
	applyProviderEnv(cfg)
	assert.Equal(t, "sk-ant-test", cfg.LLM.APIKey)

	cfg = model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	applyProviderEnv(cfg)
	assert.Equal(t, "http://ollama:11434", cfg.LLM.BaseURL)

	cfg = model.DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = "explicit"
	applyProviderEnv(cfg)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestInitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".clausewise", "config.yaml")

	require.NoError(t, initConfigFile(path, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Clausewise Configuration File"))

	var cfg model.Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Classifier.CallTimeout)
	assert.Contains(t, cfg.Risk.Calibrations, "MSA")

	err = initConfigFile(path, false)
	assert.ErrorContains(t, err, "already exists")

	assert.NoError(t, initConfigFile(path, true))
}

func TestRedact(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.LLM.APIKey = "sk-secret"

	out := redact(cfg)
	assert.Equal(t, "********", out.LLM.APIKey)
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"contracts/nda.pdf":                    "nda",
		"https://example.com/legal/terms.html": "terms",
		`C:\docs\master services.docx`:         "master-services",
		"https://example.com/":                 "example",
		"":                                     "document",
		strings.Repeat("a", 150) + ".txt":      strings.Repeat("a", 100),
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}

func TestRunAnalyze_WritesReport(t *testing.T) {
	require.NoError(t, registerDefaults(viper.GetViper(), model.DefaultConfig()))

	dir := t.TempDir()
	src := filepath.Join(dir, "nda.txt")
	require.NoError(t, os.WriteFile(src, []byte(sampleNDA), 0o600))

	outPath = filepath.Join(dir, "report.json")
	cmdTimeout = 30 * time.Second
	t.Cleanup(func() { outPath = "" })

	require.NoError(t, runAnalyze(analyzeCmd, []string{src}))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var a model.Analysis
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, src, a.Contract.Filename)
	assert.Len(t, a.Clauses, 4)
	require.NotNil(t, a.Risk)
	assert.Equal(t, "NDA", a.Risk.ContractType)
}

func TestRunBatch_WritesReports(t *testing.T) {
	require.NoError(t, registerDefaults(viper.GetViper(), model.DefaultConfig()))

	dir := t.TempDir()
	src := filepath.Join(dir, "nda.txt")
	require.NoError(t, os.WriteFile(src, []byte(sampleNDA), 0o600))

	list := filepath.Join(dir, "list.txt")
	content := "# contracts\n" + src + "\n" + filepath.Join(dir, "missing.txt") + "\n" + src + "\n"
	require.NoError(t, os.WriteFile(list, []byte(content), 0o600))

	outputDir = filepath.Join(dir, "reports")
	batchTimeout = time.Minute
	concurrency = 2

	require.NoError(t, runBatch(batchCmd, []string{list}))

	assert.FileExists(t, filepath.Join(outputDir, "001-nda.json"))
	assert.FileExists(t, filepath.Join(outputDir, "001-nda.md"))
	assert.NoFileExists(t, filepath.Join(outputDir, "002-missing.json"))
}

func TestRunBatch_AllFailed(t *testing.T) {
	require.NoError(t, registerDefaults(viper.GetViper(), model.DefaultConfig()))

	dir := t.TempDir()
	list := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(list, []byte(filepath.Join(dir, "missing.txt")+"\n"), 0o600))

	outputDir = filepath.Join(dir, "reports")
	batchTimeout = time.Minute
	concurrency = 1

	err := runBatch(batchCmd, []string{list})
	assert.ErrorContains(t, err, "all 1 documents failed")
}
