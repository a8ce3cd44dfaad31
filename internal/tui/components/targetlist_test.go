package components

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmacro/habitat/internal/model"
)

func TestNewTargetList(t *testing.T) {
	t.Parallel()

	results := map[string]model.TargetResult{
		"network": {Target: "network", Status: model.StatusSuccess},
	}
	list := NewTargetList([][]string{{"dns", "network"}, {"app"}}, results)

	stages := list.Stages()
	require.Len(t, stages, 2)
	require.Equal(t, 0, stages[0].Index)
	require.Equal(t, "dns", stages[0].Targets[0].Name)
	require.Equal(t, model.StatusPending, stages[0].Targets[0].Result.Status)
	require.Equal(t, model.StatusSuccess, stages[0].Targets[1].Result.Status)
	require.Equal(t, "app", stages[1].Targets[0].Name)
}

func TestTargetListStagesIsACopy(t *testing.T) {
	t.Parallel()

	list := NewTargetList([][]string{{"a"}}, nil)
	stages := list.Stages()
	stages[0] = StageEntry{Index: 9}

	require.Equal(t, 0, list.Stages()[0].Index)
}
