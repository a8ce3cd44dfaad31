package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestProvidesAcceptsScalarAndSequence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
		want Provides
	}{
		{name: "scalar", doc: "provides: k8s", want: Provides{"k8s"}},
		{name: "sequence", doc: "provides: [network, dns]", want: Provides{"network", "dns"}},
		{name: "absent", doc: "name: x", want: nil},
		{name: "empty scalar", doc: `provides: ""`, want: nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var out struct {
				Provides Provides `yaml:"provides"`
			}
			require.NoError(t, yaml.Unmarshal([]byte(tc.doc), &out))
			require.Equal(t, tc.want, out.Provides)
		})
	}
}

func TestProvidesRejectsMapping(t *testing.T) {
	t.Parallel()

	var out struct {
		Provides Provides `yaml:"provides"`
	}
	err := yaml.Unmarshal([]byte("provides:\n  a: b\n"), &out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "provides must be")
}

func TestModuleShouldDestroyDefaultsToTrue(t *testing.T) {
	t.Parallel()

	var modules []Module
	doc := `
- name: keep
  should_destroy: false
- name: default
`
	require.NoError(t, yaml.Unmarshal([]byte(doc), &modules))
	require.Len(t, modules, 2)
	require.False(t, modules[0].ShouldDestroy)
	require.True(t, modules[1].ShouldDestroy)
}

func TestLookupHelpers(t *testing.T) {
	t.Parallel()

	modules := ModuleMap([]Module{{Name: "a"}, {Name: "b"}})
	require.Contains(t, modules, "a")
	require.Contains(t, modules, "b")

	scripts := ScriptMap([]Script{{Name: "wait", Path: "/bin/true"}})
	require.Equal(t, "/bin/true", scripts["wait"].Path)

	var nilFile *HabFile
	_, ok := nilFile.FindBiome("dev")
	require.False(t, ok)
}
