package syncx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-classroom/internal/db"
)

func TestAppendAndListSince(t *testing.T) {
	ctx := context.Background()
	dbh, err := db.Open(ctx, db.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	defer dbh.Close()

	repo := NewEventRepo(dbh, "")
	require.NoError(t, repo.Append(ctx, TypeSubmissionGraded, "s1/c1/0", map[string]any{"score": 5}))
	require.NoError(t, repo.Append(ctx, TypeSubmissionRegraded, "s1/c1/0", map[string]any{"score": 10}))

	all, err := repo.ListSince(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, TypeSubmissionGraded, all[0].Type)
	assert.Equal(t, "local", all[0].SiteID)
	assert.JSONEq(t, `{"score":5}`, string(all[0].Data))

	rest, err := repo.ListSince(ctx, all[0].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, TypeSubmissionRegraded, rest[0].Type)
}
