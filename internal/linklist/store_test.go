package linklist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/vgm-downloader/internal/model"
)

const sampleFile = `[
    [
        {
            "disc_number": 1,
            "name_with_codec": "01. Opening & Title.mp3",
            "url": "https://cdn.example/01.mp3"
        },
        {
            "disc_number": 1,
            "name_with_codec": "01. Opening & Title.flac",
            "url": "https://cdn.example/01.flac"
        }
    ],
    [
        {
            "disc_number": null,
            "name_with_codec": "02. Missing.wav",
            "url": null
        }
    ]
]
`

func TestStore_RoundTripIsByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "link_list.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleFile), 0644))

	store := NewStore(path)
	list, err := store.Load()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[1][0].URL)
	assert.Nil(t, list[1][0].DiscNumber)
	assert.Equal(t, 1, *list[0][1].DiscNumber)

	require.NoError(t, store.Save(list))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleFile, string(got))

	again, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, list, again)
}

func TestStore_SaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "list.json")
	store := NewStore(path)

	require.NoError(t, store.Save(nil))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(got))

	list, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_LoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[{"name":"x","link":"y"}]]`), 0644))

	_, err := NewStore(path).Load()
	assert.Error(t, err)
}

func TestStore_LoadMissingFile(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "nope.json")).Load()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewStore_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, NewStore("").Path)
}

func TestMarshal_KeepsOrder(t *testing.T) {
	a, b := "a", "b"
	list := model.LinkList{
		{{NameWithCodec: "02. B.mp3", URL: &b}},
		{{NameWithCodec: "01. A.mp3", URL: &a}},
	}
	data, err := Marshal(list)
	require.NoError(t, err)

	back, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "02. B.mp3", back[0][0].NameWithCodec)
	assert.Equal(t, "01. A.mp3", back[1][0].NameWithCodec)
}
