package setup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dszqbsm/fraudcrawler/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel = \"debug\"\n[chat]\nlisten = \":9000\"\n"), 0o644))
	old := config.File
	config.File = path
	defer func() { config.File = old }()
	t.Setenv("MYSQL_URL", "")
	t.Setenv("OPENAI_API_KEY", "")

	env, err := Init()
	require.NoError(t, err)
	assert.Equal(t, ":9000", env.Config.Chat.Listen)

	s, err := env.Storage()
	require.NoError(t, err)
	assert.Nil(t, s)

	c, err := env.LLM(nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	l, err := env.Tracer("")
	require.NoError(t, err)
	assert.Nil(t, l)
	l, err = env.Tracer(filepath.Join(dir, "trace", "runs.jsonl"))
	require.NoError(t, err)
	assert.NotNil(t, l)

	ctx := WithEnv(context.Background(), env)
	assert.Same(t, env, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))

	assert.NoError(t, env.Close())
}

func TestInitBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel = \"loud\"\n"), 0o644))
	old := config.File
	config.File = path
	defer func() { config.File = old }()

	_, err := Init()
	assert.Error(t, err)
}
