// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCode(t *testing.T) {
	doc := `<h2>Intro</h2>
<pre><code class="language-python">if a &lt; b:
    print(a)</code></pre>
<pre><code class="language-go">fmt.Println()</code></pre>
<pre>plain text</pre>
<p><code class="python">inline</code></p>
<pre><code class="hljs Python3">x = 1</code></pre>`

	blocks, err := ExtractCode(doc, LangPython)
	require.NoError(t, err)
	assert.Equal(t, []string{"if a < b:\n    print(a)", "x = 1"}, blocks)
}

func TestExtractCodeNone(t *testing.T) {
	blocks, err := ExtractCode("<p>no code here</p>", LangPython)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestPythonSyntaxValid(t *testing.T) {
	src := "import json\n\ndef load(s):\n    return json.loads(s)\n\nprint(load('[1, 2]'))\n"
	assert.NoError(t, PythonSyntax{}.Check(context.Background(), src))
}

func TestPythonSyntaxInvalid(t *testing.T) {
	src := "x = 1\ndef broken(:\n    pass\n"
	err := PythonSyntax{}.Check(context.Background(), src)
	require.Error(t, err)

	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 2, se.Line)
	assert.Contains(t, err.Error(), "line 2")
}

func TestPythonSyntaxUnclosedParen(t *testing.T) {
	err := PythonSyntax{}.Check(context.Background(), "print('hello'\n")
	assert.Error(t, err)
}

func TestExcerptKeepsRunesWhole(t *testing.T) {
	long := "заголовок = " + strings.Repeat("привет", 10)
	got := excerpt(long)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxNear, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(long, got))

	assert.Equal(t, "x = (", excerpt("  x = (\n"))
}

func TestPythonSyntaxCyrillicErrorIsValidUTF8(t *testing.T) {
	src := "сообщение = 'Привет, мир! Это очень длинная строка для проверки'\nprint(сообщение\n"
	err := PythonSyntax{}.Check(context.Background(), src)
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
}
