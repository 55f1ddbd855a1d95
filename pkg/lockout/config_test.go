package lockout

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("LOCKOUT_EXCEPTIONS", "alice, bob,")
	t.Setenv("LOCKOUT_SERVICE_REGEX", "^prod-.*")
	t.Setenv("LOCKOUT_DAYS", "0,6")
	t.Setenv("LOCKOUT_AFTER_HOUR", "18")

	p := PolicyFromEnv(false)

	assert.Equal(t, []string{"alice", "bob"}, p.Exceptions)
	assert.Equal(t, "^prod-.*", p.ServiceRegex)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, p.Days)
	assert.Equal(t, 18, p.AfterHour)
}

func TestPolicyFromEnv_KubernetesRegexVariable(t *testing.T) {
	t.Setenv("LOCKOUT_SERVICE_REGEX", "^swarm-.*")
	t.Setenv("LOCKOUT_DEPLOYMENT_REGEX", "^production/.*")

	assert.Equal(t, "^swarm-.*", PolicyFromEnv(false).ServiceRegex)
	assert.Equal(t, "^production/.*", PolicyFromEnv(true).ServiceRegex)
}

func TestPolicyFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"LOCKOUT_EXCEPTIONS", "LOCKOUT_SERVICE_REGEX", "LOCKOUT_DAYS", "LOCKOUT_AFTER_HOUR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	p := PolicyFromEnv(false)

	assert.Empty(t, p.Exceptions)
	assert.Empty(t, p.ServiceRegex)
	assert.Empty(t, p.Days)
	assert.Equal(t, -1, p.AfterHour, "hour lockout disabled by default")
}

func TestPolicyFromEnv_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("LOCKOUT_DAYS", "7,-1,abc,2")
	t.Setenv("LOCKOUT_AFTER_HOUR", "25")

	p := PolicyFromEnv(false)

	assert.Equal(t, []time.Weekday{time.Tuesday}, p.Days)
	assert.Equal(t, -1, p.AfterHour)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockout.yaml")
	content := `exceptions:
  - alice
serviceRegex: "^prod-.*"
days: [1, 2]
afterHour: 17
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadPolicyFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, p.Exceptions)
	assert.Equal(t, "^prod-.*", p.ServiceRegex)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday}, p.Days)
	assert.Equal(t, 17, p.AfterHour)
}

func TestLoadPolicyFile_MissingIsDisabled(t *testing.T) {
	p, err := LoadPolicyFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicyFile_OmittedHourStaysDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("serviceRegex: \"^prod-.*\"\n"), 0o644))

	p, err := LoadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, -1, p.AfterHour)
}

func TestLoadPolicyFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockout.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := LoadPolicyFile(path)
	assert.Error(t, err)
}
