package module

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()

	m := New("network", "/modules/network", "/state", Options{Discoverer: StaticVariables(Variables{})})

	require.Equal(t, "network", m.Name())
	require.Equal(t, []string{"network"}, m.Provides())
	require.Empty(t, m.DependsOn())
	require.True(t, m.ShouldDestroy())
	require.Equal(t, filepath.Join("/state", "network.tfstate"), m.StateFile())
	require.Equal(t, filepath.Join("/state", "network.plan"), m.PlanFile())
	require.Equal(t, filepath.Join("/state", "network.tfstate.backup"), m.BackupFile())
	require.Equal(t, filepath.Join("/modules/network", ".terraform"), m.DataDir())
}

func TestProvidesIsImmutable(t *testing.T) {
	t.Parallel()

	provides := []string{"network", "dns"}
	keep := false
	m := New("network", "/m", "/s", Options{Provides: provides, ShouldDestroy: &keep})
	provides[0] = "changed"

	got := m.Provides()
	got[1] = "changed"

	require.Equal(t, []string{"network", "dns"}, m.Provides())
	require.False(t, m.ShouldDestroy())
}

func TestVariablesDiscoveredOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := New("db", "/m/db", "/s", Options{Discoverer: DiscoverFunc(func(path string) (Variables, error) {
		calls.Add(1)
		require.Equal(t, "/m/db", path)
		return Variables{
			Inputs:  []string{"vpc_id"},
			Outputs: []Output{{Name: "db_host"}, {Name: "db_password", Sensitive: true}},
		}, nil
	})})

	require.Equal(t, []string{"vpc_id"}, m.InputVariables())
	require.Equal(t, []string{"db_host", "db_password"}, m.OutputVariables())
	require.True(t, m.IsSensitive("db_password"))
	require.False(t, m.IsSensitive("db_host"))
	require.EqualValues(t, 1, calls.Load())
}

func TestDiscoveryErrorIsCached(t *testing.T) {
	t.Parallel()

	boom := errors.New("broken")
	m := New("db", "/m/db", "/s", Options{Discoverer: DiscoverFunc(func(string) (Variables, error) {
		return Variables{}, boom
	})})

	_, err := m.Variables()
	require.ErrorIs(t, err, boom)
	require.Empty(t, m.InputVariables())
}

func TestTerraformDiscoverer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := `
variable "vpc_id" {
  type = string
}

variable "region" {}

output "db_host" {
  value = "localhost"
}

output "db_password" {
  value     = "hunter2"
  sensitive = true
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte(src), 0o644))

	vars, err := TerraformDiscoverer{}.Discover(dir)
	require.NoError(t, err)
	require.Equal(t, []string{"region", "vpc_id"}, vars.Inputs)
	require.Equal(t, []Output{{Name: "db_host"}, {Name: "db_password", Sensitive: true}}, vars.Outputs)
}

func TestProvidesDeduplicated(t *testing.T) {
	t.Parallel()

	m := New("storage", "/m", "/s", Options{Provides: []string{"disks", "buckets", "disks"}})
	require.Equal(t, []string{"disks", "buckets"}, m.Provides())
}
