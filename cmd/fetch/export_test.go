package fetch

import (
	"testing"
	"time"

	"github.com/lepinkainen/coverfetch/internal/datastore"
	"github.com/lepinkainen/coverfetch/internal/testutil"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreChoosesBackend(t *testing.T) {
	assert.IsType(t, &datastore.DatasetteClient{}, openStore("https://datasette.example.com", "token"))
	assert.IsType(t, &datastore.SQLiteStore{}, openStore("./covers.db", ""))
}

func TestExportSavedDisabled(t *testing.T) {
	env := testutil.NewTestEnv(t)
	viper.Reset()
	t.Cleanup(viper.Reset)
	testutil.SetViperValue(t, "datasette.enabled", false)
	testutil.SetViperValue(t, "datasette.dbfile", env.Path("covers.db"))

	err := exportSaved([]datastore.Saved{{Query: "活着"}}, time.Now())
	require.NoError(t, err)
	env.RequireFileNotExists("covers.db")
}
