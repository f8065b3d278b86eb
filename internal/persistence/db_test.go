package persistence

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/tokamak-sim/internal/engine"
	"github.com/talgya/tokamak-sim/internal/plant"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "plant.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAndReadRuns(t *testing.T) {
	db := openTemp(t)

	res := engine.Result{
		Fusion:  111.96,
		ElecNet: -205.63,
		Sliders: plant.Sliders{Outer: 38, Inner: 36, TopInner: 35, TopOuter: 23},
	}
	in := engine.Inputs{Field: 5.3, Power: 49.51, FuelFactor: 0.0445}

	first, err := NewRun("s1", plant.TypeLarge, in, res)
	require.NoError(t, err)
	require.NoError(t, db.SaveRun(first))

	res.Fusion = 547.2
	second, err := NewRun("s2", plant.TypeCompact, in, res)
	require.NoError(t, err)
	second.CreatedAt = first.CreatedAt + 1
	require.NoError(t, db.SaveRun(second))

	runs, err := db.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID, "newest first")
	assert.Equal(t, string(plant.TypeCompact), runs[0].PlantType)
	assert.Equal(t, 547.2, runs[0].FusionMW)
	assert.JSONEq(t, `{"outer":38,"inner":36,"top_inner":35,"top_outer":23}`, runs[1].Sliders)
	assert.JSONEq(t, `{"B_in":5.3,"Pw_in_MW":49.51,"mdot_V_fac":0.0445}`, runs[1].Inputs)

	decoded, err := runs[1].Result()
	require.NoError(t, err)
	assert.Equal(t, 111.96, decoded.Fusion)
	assert.Equal(t, res.Sliders, decoded.Sliders)

	limited, err := db.RecentRuns(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	mine, err := db.SessionRuns("s1", 10)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)
}

func TestSaveRunsBatch(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveRuns(nil))

	var batch []Run
	for i := 0; i < 5; i++ {
		r, err := NewRun("sweep", plant.TypeLarge, engine.Inputs{FuelFactor: float64(i) / 10}, engine.Result{Fusion: float64(i)})
		require.NoError(t, err)
		batch = append(batch, r)
	}
	require.NoError(t, db.SaveRuns(batch))

	n, err := db.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Duplicate ids roll the whole batch back.
	err = db.SaveRuns(batch[:2])
	require.Error(t, err)
	n, err = db.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestMeta(t *testing.T) {
	db := openTemp(t)

	_, err := db.GetMeta("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, db.SaveMeta("last_plant", "ITER_R=8m"))
	require.NoError(t, db.SaveMeta("last_plant", "ITER_R=6m"))
	v, err := db.GetMeta("last_plant")
	require.NoError(t, err)
	assert.Equal(t, "ITER_R=6m", v)
}

func TestRunResultDecodeError(t *testing.T) {
	_, err := Run{ID: "bad", ResultJSON: "{"}.Result()
	assert.Error(t, err)
}
