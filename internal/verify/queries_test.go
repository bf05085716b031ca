// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueries(t *testing.T) {
	got := BuildQueries("Как начать с LangChain", 8)
	assert.Equal(t, []string{
		"Как начать с LangChain",
		"langchain",
		"начать",
		`"Как начать"`,
		`"начать LangChain"`,
		"site:github.com Как начать с LangChain",
	}, got)
}

func TestBuildQueriesCap(t *testing.T) {
	got := BuildQueries("Rust async runtime comparison", 8)
	assert.Len(t, got, 8)
	assert.Equal(t, "Rust async runtime comparison", got[0])
	assert.Equal(t, []string{"comparison", "runtime", "async", "rust"}, got[1:5])
	assert.Equal(t, `"Rust async"`, got[5])
	assert.NotContains(t, got, "site:github.com Rust async runtime comparison")

	assert.Len(t, BuildQueries("Rust async runtime comparison", 3), 3)
}

func TestBuildQueriesDedup(t *testing.T) {
	assert.Equal(t, []string{"Kubernetes", "site:github.com Kubernetes"}, BuildQueries("  Kubernetes ", 0))
	assert.Nil(t, BuildQueries("   ", 8))
}
