package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pendlerapp/vokabel/internal/domain"
)

const (
	wordPrefix        = "W:"
	translationPrefix = "T:"
	examplePrefix     = "E:"
	categoryPrefix    = "C:"
	difficultyPrefix  = "D:"
)

// Entry is one raw word as read from a deck file, before validation.
type Entry struct {
	Word        string
	Translation string
	Example     string
	Category    string
	Difficulty  domain.Difficulty
}

type state int

const (
	seeking state = iota
	readingWord
	readingTranslation
	readingExample
	readingCategory
	readingDifficulty
)

// ParseFile reads a deck file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a deck from an io.Reader and extracts all entries. A deck is a
// sequence of W:/T:/E:/C:/D: blocks; a new W: line or a "---" separator
// starts the next entry. Blocks may span multiple lines.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingWord:
			current.Word = content
		case readingTranslation:
			current.Translation = content
		case readingExample:
			current.Example = content
		case readingCategory:
			current.Category = content
		case readingDifficulty:
			current.Difficulty = domain.Difficulty(strings.ToLower(strings.TrimSpace(content)))
		}
		currentBlock = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Word != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	startBlock := func(s state, line, prefix string) {
		flushBlock()
		currentState = s
		content := strings.TrimPrefix(line, prefix)
		if strings.HasPrefix(content, " ") {
			content = content[1:]
		}
		currentBlock = append(currentBlock, content)
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishEntry()
			continue
		}

		switch {
		case strings.HasPrefix(line, wordPrefix):
			if currentState != seeking { // a new word always starts a new entry
				finishEntry()
			}
			startBlock(readingWord, line, wordPrefix)
		case strings.HasPrefix(line, translationPrefix):
			startBlock(readingTranslation, line, translationPrefix)
		case strings.HasPrefix(line, examplePrefix):
			startBlock(readingExample, line, examplePrefix)
		case strings.HasPrefix(line, categoryPrefix):
			startBlock(readingCategory, line, categoryPrefix)
		case strings.HasPrefix(line, difficultyPrefix):
			startBlock(readingDifficulty, line, difficultyPrefix)
		default:
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
		}
	}

	finishEntry() // finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
