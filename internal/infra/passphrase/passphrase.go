// Package passphrase generates readable secrets such as "apple+river+stone+moss".
package passphrase

import (
	"strings"

	"github.com/sethvargo/go-diceware/diceware"
)

type Generator struct {
	words int
}

func New(words int) *Generator {
	if words <= 0 {
		words = 4
	}
	return &Generator{words: words}
}

func (g *Generator) Generate() (string, error) {
	words, err := diceware.Generate(g.words)
	if err != nil {
		return "", err
	}
	return strings.Join(words, "+"), nil
}
