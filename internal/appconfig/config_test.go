package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileAppliesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)
	require.Equal(t, DefaultDisplayLanguage, c.DisplayLanguage)
	require.Equal(t, DefaultVoiceLanguage, c.VoiceLanguage)
	require.Equal(t, SourceGitHub, c.GameDataSource)
}

func TestValidateRejectsGitHubSourceWithNoRepository(t *testing.T) {
	c := &Config{GameDataSource: SourceGitHub}
	err := c.Validate()
	require.Error(t, err)
}

func TestSaveThenLoadPreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"display_language":"ko_KR","voice_language":"ko","game_data_source":"arkprts","future_field":"kept"}`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "ko_KR", c.DisplayLanguage)

	c.VoiceLanguage = "ja"
	require.NoError(t, c.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "future_field")
	require.Contains(t, string(data), `"ja"`)
}

func TestSaveThenLoadRoundTripsNicknamesAndGPUCompat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	c := &Config{
		DisplayLanguage: "en_US",
		VoiceLanguage:   "ko",
		GameDataSource:  SourceArkPrts,
		DefaultEngine:   "gpt-sovits",
		Nicknames:       map[string]string{"ko_KR": "코니"},
		VoiceOverrides:  map[string]string{"name:아미야": "amiya_voice"},
		GPUCompat:       GPUCompat{CUDAAvailable: true, LowVRAM: true},
	}
	require.NoError(t, c.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "코니", loaded.Nicknames["ko_KR"])
	require.Equal(t, "amiya_voice", loaded.VoiceOverrides["name:아미야"])
	require.True(t, loaded.GPUCompat.CUDAAvailable)
	require.True(t, loaded.GPUCompat.LowVRAM)
}
