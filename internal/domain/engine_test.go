package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestInput() Input {
	master := NewSKUMaster([]SKUAttributes{
		createTestSKU("SKU-S", 40, 50, 10),
		createTestSKU("SKU-M", 1000, 20, 1),
		{SKUCode: "SKU-X", ItemVolume: Float(10), QtyPerCommercialBox: Float(1)},
	})

	storage := createTestLine(12, "GI-008", "SKU-S", 10)
	storage.LocationType = "Storage"

	lines := []OrderLine{
		createTestLine(1, "GI-001", "SKU-S", 125),
		createTestLine(2, "GI-002", "SKU-S", 100),
		createTestLine(3, "GI-003", "SKU-M", 10),
		createTestLine(4, "GI-003", "SKU-S", 50),
		createTestLine(5, "GI-004", "SKU-M", 20),
		createTestLine(6, "GI-004", "SKU-S", 25),
		createTestLine(7, "GI-005", "SKU-M", 50),
		createTestLine(8, "GI-005", "SKU-S", 10),
		createTestLine(9, "GI-006", "SKU-M", 300),
		createTestLine(10, "GI-006", "SKU-S", 10),
		createTestLine(11, "GI-007", "SKU-X", 5),
		storage,
	}

	return Input{Lines: lines, Master: master}
}

func TestEngine_Run(t *testing.T) {
	engine, err := NewEngine(DefaultEngineConfig())
	require.NoError(t, err)

	ticket, err := engine.Run(createTestInput())
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, ticket.Status)

	require.Len(t, ticket.Jobs, 2)
	assert.Equal(t, "Job001", ticket.Jobs[0].JobID)
	assert.Equal(t, []string{"GI-001", "GI-002"}, ticket.Jobs[0].IssueNos)
	assert.Equal(t, "Job002", ticket.Jobs[1].JobID)
	assert.Equal(t, JobKindMixed, ticket.Jobs[1].Kind)
	assert.Equal(t, []string{"GI-003", "GI-004", "GI-005"}, ticket.Jobs[1].IssueNos)

	require.Len(t, ticket.Rows, 8)
	first := ticket.Rows[0]
	assert.Equal(t, "GI-001", first.IssueNo)
	assert.Equal(t, "Bin001", first.Type)
	assert.Equal(t, "Job001", first.JobID)
	assert.Equal(t, "2 Commercial Carton + 1XS", first.CartonDescription)
	assert.Equal(t, 12.5, first.CommercialBoxCount)
	assert.Equal(t, 500.0, first.TotalOrderVolume)

	types := map[string]string{}
	for _, row := range ticket.Rows {
		types[row.IssueNo] = row.Type
	}
	assert.Equal(t, map[string]string{
		"GI-001": "Bin001",
		"GI-002": "Bin002",
		"GI-003": "Bin003",
		"GI-004": "Bin004",
		"GI-005": "Layer001",
	}, types)

	require.Len(t, ticket.Excluded, 2)
	assert.Equal(t, "GI-007", ticket.Excluded[0].IssueNo)
	assert.Equal(t, ReasonMissingMasterData, ticket.Excluded[0].Reason)
	assert.Equal(t, "GI-008", ticket.Excluded[1].IssueNo)
	assert.Equal(t, ReasonStorageLocation, ticket.Excluded[1].Reason)

	require.Len(t, ticket.PickByOrder, 1)
	assert.Equal(t, "GI-006", ticket.PickByOrder[0].IssueNo)
	assert.InDelta(t, 300040, ticket.PickByOrder[0].TotalVolume, 1e-6)

	assert.Equal(t, Summary{
		InputLines:       12,
		Orders:           6,
		BinOrders:        4,
		LayerOrders:      1,
		OversizeOrders:   1,
		SingleLineOrders: 2,
		MultiLineOrders:  3,
		ExcludedOrders:   2,
		Jobs:             2,
		Rows:             8,
		Strategy:         StrategyScenario,
	}, ticket.Summary)
	assert.Empty(t, ticket.Warnings)
	assert.Empty(t, ticket.MultiBatchSKUs)
}

func TestEngine_Run_CapacityStrategy(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.MultiLine.Strategy = StrategyCapacity
	cfg.MultiLine.MaxJobVolume = 40000
	engine, err := NewEngine(cfg)
	require.NoError(t, err)

	ticket, err := engine.Run(createTestInput())
	require.NoError(t, err)

	require.Len(t, ticket.Jobs, 3)
	assert.Equal(t, []string{"GI-003", "GI-004"}, ticket.Jobs[1].IssueNos)
	assert.Equal(t, []string{"GI-005"}, ticket.Jobs[2].IssueNos)
	assert.True(t, ticket.Jobs[2].HasFlag(FlagOverCapacity))
	require.Len(t, ticket.Warnings, 1)
	assert.Contains(t, ticket.Warnings[0], "Job003")
	assert.Equal(t, StrategyCapacity, ticket.Summary.Strategy)
}

func TestEngine_Run_OrderKindView(t *testing.T) {
	engine, err := NewEngine(DefaultEngineConfig())
	require.NoError(t, err)

	in := createTestInput()
	in.Options.OrderKind = OrderKindSingle
	ticket, err := engine.Run(in)
	require.NoError(t, err)

	require.Len(t, ticket.Rows, 2)
	assert.Len(t, ticket.Jobs, 2, "jobs are formed over every order")
	for _, row := range ticket.Rows {
		assert.Equal(t, "Job001", row.JobID)
	}
}

func TestEngine_Run_EmptyInput(t *testing.T) {
	engine, err := NewEngine(DefaultEngineConfig())
	require.NoError(t, err)

	ticket, err := engine.Run(Input{})

	require.NoError(t, err)
	assert.Equal(t, StatusNoData, ticket.Status)
	assert.NotNil(t, ticket.Rows)
	assert.Empty(t, ticket.Rows)
	assert.NotNil(t, ticket.Jobs)
	assert.NotNil(t, ticket.Excluded)
	assert.NotNil(t, ticket.PickByOrder)
}

func TestEngine_Run_EverythingExcluded(t *testing.T) {
	engine, err := NewEngine(DefaultEngineConfig())
	require.NoError(t, err)

	ticket, err := engine.Run(Input{
		Lines:  []OrderLine{createTestLine(1, "GI-001", "SKU-404", 1)},
		Master: NewSKUMaster(nil),
	})

	require.NoError(t, err)
	assert.Equal(t, StatusNoData, ticket.Status)
	require.Len(t, ticket.Excluded, 1)
	assert.Equal(t, ReasonMissingMasterData, ticket.Excluded[0].Reason)
}

func TestEngine_Run_InvalidCartonIsLocal(t *testing.T) {
	engine, err := NewEngine(DefaultEngineConfig())
	require.NoError(t, err)

	ticket, err := engine.Run(Input{
		Lines: []OrderLine{
			createTestLine(1, "GI-001", "SKU-Z", 4),
			createTestLine(2, "GI-001", "SKU-S", 10),
		},
		Master: NewSKUMaster([]SKUAttributes{
			createTestSKU("SKU-Z", 40, 0, 1),
			createTestSKU("SKU-S", 40, 50, 10),
		}),
	})

	require.NoError(t, err)
	require.Len(t, ticket.Rows, 2)
	assert.Equal(t, InvalidCarton, ticket.Rows[0].CartonDescription)
	assert.Equal(t, "1XS", ticket.Rows[1].CartonDescription)
	assert.Equal(t, 1, ticket.Summary.InvalidCartons)
}

func TestEngine_Run_Reproducible(t *testing.T) {
	engine, err := NewEngine(DefaultEngineConfig())
	require.NoError(t, err)

	first, err := engine.Run(createTestInput())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.Run(createTestInput())
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("engine output not reproducible (-first +again):\n%s", diff)
		}
	}
}

func TestEngine_Run_IntegrityViolationHaltsOutput(t *testing.T) {
	engine, err := NewEngine(DefaultEngineConfig())
	require.NoError(t, err)
	engine.batcher = NewBatcherWithStrategies(SingleLineStrategy{BatchSize: 5}, duplicatingStrategy{})

	ticket, err := engine.Run(createTestInput())

	assert.Nil(t, ticket)
	require.Error(t, err)
	assert.True(t, IsJobIntegrityViolation(err))
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	cfg.SingleLine.BatchSize = 0

	_, err := NewEngine(cfg)

	assert.ErrorIs(t, err, ErrInvalidConfig)
}
