// Package names generates human-friendly default project names.
package names

import (
	"strings"
	"time"

	"github.com/goombaio/namegenerator"
)

// Generator produces random three-word project names like
// "Autumn Quiet Meadow".
type Generator struct {
	gen namegenerator.Generator
}

// New creates a Generator seeded from the current time
func New() *Generator {
	return NewWithSeed(time.Now().UTC().UnixNano())
}

// NewWithSeed creates a Generator with a fixed seed, for deterministic tests
func NewWithSeed(seed int64) *Generator {
	return &Generator{gen: namegenerator.NewNameGenerator(seed)}
}

// Generate returns a capitalized three-word name
func (g *Generator) Generate() string {
	// Each underlying name is an adjective-noun pair; combine two to get
	// adjective adjective noun.
	first := strings.Split(g.gen.Generate(), "-")
	second := strings.Split(g.gen.Generate(), "-")

	words := []string{first[0], second[0], second[len(second)-1]}
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
