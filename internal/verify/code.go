// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// LangPython is the code block language the engine checks and runs.
const LangPython = "python"

// maxNear bounds the source excerpt quoted in a SyntaxError, in runes.
const maxNear = 40

// ExtractCode returns the text of every <pre><code> block whose class
// mentions lang, in document order.
func ExtractCode(html, lang string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing article HTML: %w", err)
	}
	var blocks []string
	doc.Find("pre").Each(func(_ int, pre *goquery.Selection) {
		code := pre.Find("code").First()
		if code.Length() == 0 {
			return
		}
		class, _ := code.Attr("class")
		if !classMentions(class, lang) {
			return
		}
		blocks = append(blocks, code.Text())
	})
	return blocks, nil
}

func classMentions(class, lang string) bool {
	for _, c := range strings.Fields(class) {
		if strings.Contains(strings.ToLower(c), lang) {
			return true
		}
	}
	return false
}

// SyntaxChecker statically validates one code block.
type SyntaxChecker interface {
	Check(ctx context.Context, src string) error
}

// SyntaxError locates the first parse problem.
type SyntaxError struct {
	Line   int
	Column int
	Kind   string
	Near   string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("%s at line %d, column %d", e.Kind, e.Line, e.Column)
	}
	return fmt.Sprintf("%s at line %d, column %d near %q", e.Kind, e.Line, e.Column, e.Near)
}

// PythonSyntax parses code with the tree-sitter Python grammar.
type PythonSyntax struct{}

// Check returns a *SyntaxError for the first error or missing node.
func (PythonSyntax) Check(ctx context.Context, src string) error {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	source := []byte(src)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return fmt.Errorf("parsing python: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}
	bad := firstProblem(root)
	if bad == nil {
		return &SyntaxError{Line: 1, Column: 1, Kind: "invalid syntax"}
	}
	kind := "invalid syntax"
	if bad.IsMissing() {
		kind = "missing " + bad.Type()
	}
	p := bad.StartPoint()
	return &SyntaxError{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Kind: kind, Near: excerpt(bad.Content(source))}
}

// excerpt trims s to at most maxNear runes without splitting a character.
func excerpt(s string) string {
	if utf8.RuneCountInString(s) > maxNear {
		s = string([]rune(s)[:maxNear])
	}
	return strings.TrimSpace(s)
}

// firstProblem walks the tree depth-first for the earliest ERROR or
// MISSING node.
func firstProblem(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if bad := firstProblem(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}
