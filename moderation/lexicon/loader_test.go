package lexicon

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"moonchat/errors"
)

func TestLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"censored/en.txt": {Data: []byte("damn\nhell\n\n damn \n")},
		"censored/fr.txt": {Data: []byte("zut\r\ncretin\r\n")},
	}

	data, err := NewLoader(fsys).LoadAll("censored")
	req.NoError(err)

	// Duplicates and surrounding whitespace are collapsed
	req.ElementsMatch([]string{"damn", "hell", "zut", "cretin"}, data.Words)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
}

func TestLoader_LoadAll_Empty_Dictionaries(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"censored/en.txt": {Data: []byte("\n\n")},
	}

	_, err := NewLoader(fsys).LoadAll("censored")
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestLoader_LoadAll_Missing_Directory(t *testing.T) {
	req := require.New(t)

	_, err := NewLoader(fstest.MapFS{}).LoadAll("censored")
	req.Error(err)
}
