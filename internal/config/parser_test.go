package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	haberrors "github.com/tmacro/habitat/pkg/errors"
)

const sampleHabFile = `version: "1.0"
scripts:
  - name: wait_for_ssh
    path: ./bin/wait-for-ssh
modules:
  - name: network
    provides: [network, dns]
  - name: cluster
    provides: k8s
    depends_on: [network]
    before:
      - name: wait_for_ssh
        args: ["--host={bastion_ip}", "--port=22"]
  - name: bootstrap
    should_destroy: false
biomes:
  - name: dev
    modules: [network, cluster, bootstrap]
habitats:
  - name: everything
    biomes: [dev]
`

func TestParseHabFile(t *testing.T) {
	t.Parallel()

	invalidYAML := `biomes:
  - name: dev
    modules: [a
`

	missingBiomes := `modules:
  - name: network
`

	badVersion := `version: "beta"
biomes:
  - name: dev
    modules: [network]
`

	cases := []struct {
		name     string
		contents string
		assert   func(t *testing.T, cfg *HabFile, err error)
	}{
		{
			name:     "valid habfile is parsed",
			contents: sampleHabFile,
			assert: func(t *testing.T, cfg *HabFile, err error) {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				require.Len(t, cfg.Modules, 3)
				require.Len(t, cfg.Scripts, 1)
				biome, ok := cfg.FindBiome("dev")
				require.True(t, ok)
				require.Equal(t, []string{"network", "cluster", "bootstrap"}, biome.Modules)
				habitat, ok := cfg.FindHabitat("everything")
				require.True(t, ok)
				require.Equal(t, []string{"dev"}, habitat.Biomes)
			},
		},
		{
			name:     "malformed yaml reports parse error with line",
			contents: invalidYAML,
			assert: func(t *testing.T, cfg *HabFile, err error) {
				require.Error(t, err)
				require.Nil(t, cfg)
				var parseErr *haberrors.ParseError
				require.ErrorAs(t, err, &parseErr)
				require.Greater(t, parseErr.Line, 0)
			},
		},
		{
			name:     "missing biomes fails validation",
			contents: missingBiomes,
			assert: func(t *testing.T, cfg *HabFile, err error) {
				require.Error(t, err)
				var validationErr *haberrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Contains(t, validationErr.Field, "biomes")
			},
		},
		{
			name:     "version must look like semver",
			contents: badVersion,
			assert: func(t *testing.T, cfg *HabFile, err error) {
				var validationErr *haberrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Contains(t, validationErr.Message, "semver")
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "hab.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.contents), 0o644))

			cfg, err := ParseHabFile(path)
			tc.assert(t, cfg, err)
		})
	}
}

func TestParseHabFile_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseHabFile(filepath.Join(t.TempDir(), "absent.yaml"))

	var parseErr *haberrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.ErrorIs(t, err, os.ErrNotExist)
}
