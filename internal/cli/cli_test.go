package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/scentdb-backend/internal/config"
	"github.com/javajoker/scentdb-backend/internal/database"
	"github.com/javajoker/scentdb-backend/internal/models"
	"github.com/javajoker/scentdb-backend/internal/services"
	"github.com/javajoker/scentdb-backend/internal/sources"
	"github.com/javajoker/scentdb-backend/internal/utils"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", dbPath)
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("JWT_SECRET", "cli-test-secret")
	t.Setenv("JWT_ISSUER", "scentdb-cli-test")
	t.Setenv("SOURCE_NAME", "parfumo")
	return dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func catalogConfig(path string) config.DatabaseConfig {
	return config.DatabaseConfig{Driver: "sqlite", SQLitePath: path, MaxOpenConns: 1, MaxIdleConns: 1, LogLevel: "silent"}
}

func TestTokenCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "token", "--client", "parfumo-crawler", "--ttl", "2")
	require.NoError(t, err)

	utils.SetJWTSecret("cli-test-secret")
	utils.SetJWTIssuer("scentdb-cli-test")
	claims, err := utils.ValidateServiceToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "parfumo-crawler", claims.Client)

	_, err = run(t, "token")
	assert.Error(t, err, "--client is required")
}

func TestSeedIsIdempotent(t *testing.T) {
	dbPath := setupEnv(t)

	for i := 0; i < 2; i++ {
		out, err := run(t, "seed")
		require.NoError(t, err)
		assert.Contains(t, out, "seeded perfume")
	}

	db, err := database.Initialize(catalogConfig(dbPath))
	require.NoError(t, err)
	defer database.Close(db)

	var perfumes, notes int64
	require.NoError(t, db.Model(&models.Perfume{}).Count(&perfumes).Error)
	require.NoError(t, db.Model(&models.PerfumeNote{}).Count(&notes).Error)
	assert.EqualValues(t, 1, perfumes)
	assert.EqualValues(t, 3, notes)

	var src models.Source
	require.NoError(t, db.First(&src, "name = ?", "manual_seed").Error)
	assert.Equal(t, 10, src.Reliability)
}

func TestIngestCommand(t *testing.T) {
	dbPath := setupEnv(t)

	feed := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, os.WriteFile(feed, []byte(strings.Join([]string{
		`{"url":"https://www.parfumo.com/p/1","brand":"Dior","name":"Sauvage","notes":[["Bergamot","top"]]}`,
		`{"url":"https://www.parfumo.com/p/2","brand":"Dior"}`,
		`{"url":"https://www.parfumo.com/p/3","brand":"Chanel","name":"No 5"}`,
	}, "\n")), 0o644))

	out, err := run(t, "ingest", "--workers", "1", "--timeout", "10s", feed)
	require.NoError(t, err)
	assert.Contains(t, out, "source=parfumo total=3 succeeded=2 failed=1 skipped=0")
	assert.Contains(t, out, "#1 https://www.parfumo.com/p/2")

	db, err := database.Initialize(catalogConfig(dbPath))
	require.NoError(t, err)
	defer database.Close(db)

	var perfumes int64
	require.NoError(t, db.Model(&models.Perfume{}).Count(&perfumes).Error)
	assert.EqualValues(t, 2, perfumes)

	var src models.Source
	require.NoError(t, db.First(&src).Error)
	assert.Equal(t, "parfumo", src.Name)
}

func TestIngestRejectsUnreadableFeedBeforeWriting(t *testing.T) {
	setupEnv(t)

	bad := filepath.Join(t.TempDir(), "feed.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"url":`), 0o644))

	_, err := run(t, "ingest", bad)
	assert.Error(t, err)
}

func TestIngestClosesDatabaseOnFatalFailure(t *testing.T) {
	setupEnv(t)

	feed := filepath.Join(t.TempDir(), "feed.jsonl")
	require.NoError(t, os.WriteFile(feed,
		[]byte(`{"url":"https://www.parfumo.com/p/1","brand":"Dior","name":"Sauvage"}`), 0o644))

	a := &app{}
	cmd := newRootCommand(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"ingest", "--auto-migrate=false", feed})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrBatchHalted)
	assert.Contains(t, err.Error(), "no such table")
	assert.Nil(t, a.db)
}

func TestSeedClosesDatabase(t *testing.T) {
	setupEnv(t)

	a := &app{}
	cmd := newRootCommand(a)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"seed"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Nil(t, a.db)
}

func TestIngestSourceOverride(t *testing.T) {
	a := &app{cfg: &config.Config{Source: config.SourceConfig{Name: "parfumo", BaseURL: "https://www.parfumo.com"}}}
	fromFile := &models.SourceDescriptor{Name: "fragrantica", BaseURL: "https://www.fragrantica.com"}

	opts := &ingestOptions{}
	assert.Equal(t, "parfumo", opts.resolveSource(a, &sources.Feed{}).Name)
	assert.Equal(t, "fragrantica", opts.resolveSource(a, &sources.Feed{Source: fromFile}).Name)

	opts.sourceName = "manual"
	got := opts.resolveSource(a, &sources.Feed{Source: fromFile})
	assert.Equal(t, models.SourceDescriptor{Name: "manual"}, got)
}
