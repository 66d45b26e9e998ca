package msgcat

import (
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestEmbeddedBattleReportDistinguishesKinds(t *testing.T) {
    c, err := New("")
    require.NoError(t, err)

    avg, err := c.Render("battle.report", map[string]any{"Room": "battle-gen1ou-1", "P1": "a", "P2": "b", "Rating": 1650, "Kind": "average"})
    require.NoError(t, err)
    assert.Contains(t, avg, "average rating: 1650")
    assert.Contains(t, avg, "<<battle-gen1ou-1>>")

    floor, err := c.Render("battle.report", map[string]any{"Room": "battle-gen1ou-1", "P1": "a", "P2": "b", "Rating": 1600, "Kind": "minimum"})
    require.NoError(t, err)
    assert.Contains(t, floor, "minimum rating: 1600")
}

func TestMissingKeyAndMissingData(t *testing.T) {
    c, err := New("")
    require.NoError(t, err)

    _, err = c.Render("does.not.exist", nil)
    assert.Error(t, err)

    _, err = c.Render("config.format", map[string]any{})
    assert.Error(t, err)
    assert.True(t, c.Has("config.format"))
}

func TestOverrideDir(t *testing.T) {
    dir := t.TempDir()
    require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("config:\n  format: \"fmt={{.Format}}\"\n"), 0o644))
    c, err := New(dir)
    require.NoError(t, err)
    out, err := c.Render("config.format", map[string]any{"Format": "gen1ou"})
    require.NoError(t, err)
    assert.Equal(t, "fmt=gen1ou", out)
}

func TestOverrideDuplicateKeysRejected(t *testing.T) {
    dir := t.TempDir()
    body := []byte("help: \"x\"\n")
    require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), body, 0o644))
    require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), body, 0o644))
    _, err := New(dir)
    assert.Error(t, err)
}
