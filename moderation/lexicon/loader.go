package lexicon

import (
	"bufio"
	"bytes"
	"io/fs"
	"strings"

	"moonchat/errors"
)

// WordData carries the result of the loading process including metadata for logging.
type WordData struct {
	Words     []string
	Languages []string
}

// Loader reads blacklisted words from an embedded filesystem, one
// dictionary file per language.
type Loader struct {
	fs fs.ReadDirFS
}

func NewLoader(f fs.ReadDirFS) *Loader {
	return &Loader{fs: f}
}

// LoadAll scans the given directory, treating each .txt file as a
// language dictionary, and merges their contents into a unique word
// list.
func (l *Loader) LoadAll(path string) (*WordData, error) {
	entries, err := l.fs.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		// Track the language based on the filename (e.g., "fr.txt" -> "fr")
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(l.fs, path+"/"+entry.Name())
		if err != nil {
			return nil, err
		}

		// Use a scanner to handle different line endings (\n vs \r\n) correctly
		// ⚠️Don't use strings.Split
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}

	return &WordData{Words: words, Languages: languages}, nil
}
