package docs

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/etnz/cryptotax"
	"github.com/google/go-cmp/cmp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// readmeTopics returns the topic names listed as "* name: ..." in the readme.
func readmeTopics(t *testing.T) []string {
	t.Helper()
	file, err := os.Open("readme.md")
	if err != nil {
		t.Fatalf("failed to open readme.md: %v", err)
	}
	defer file.Close()

	var topics []string
	topicRegex := regexp.MustCompile(`^\*\s+([^:]+):.*$`)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if m := topicRegex.FindStringSubmatch(scanner.Text()); len(m) > 1 {
			topics = append(topics, strings.TrimSpace(m[1]))
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("error scanning readme.md: %v", err)
	}
	return topics
}

func TestTopics(t *testing.T) {
	listed := readmeTopics(t)
	slices.Sort(listed)
	if diff := cmp.Diff(Names(), listed); diff != "" {
		t.Errorf("readme topics mismatch (-embedded +listed):\n%s", diff)
	}

	for _, name := range listed {
		t.Run(name, func(t *testing.T) {
			if _, err := Topic(name); err != nil {
				t.Errorf("Topic(%q) error = %v", name, err)
			}
		})
	}

	if _, err := Topic("nope"); err == nil {
		t.Error("Topic(nope) error = nil, want error")
	}

	all, err := Join("*")
	if err != nil {
		t.Fatalf("Join(*) error = %v", err)
	}
	for _, name := range Names() {
		content, _ := Topic(name)
		if !strings.Contains(all, content) {
			t.Errorf("Join(*) misses topic %q", name)
		}
	}
	if strings.Contains(all, "Topics:") {
		t.Error("Join(*) includes the index")
	}
}

func TestHeadings(t *testing.T) {
	files, err := filepath.Glob("*.md")
	if err != nil {
		t.Fatal(err)
	}
	for _, file := range files {
		t.Run(file, func(t *testing.T) {
			content, err := os.ReadFile(file)
			if err != nil {
				t.Fatalf("failed to read %s: %v", file, err)
			}
			root := goldmark.DefaultParser().Parse(text.NewReader(content))
			first := root.FirstChild()
			h, ok := first.(*ast.Heading)
			if !ok || h.Level != 1 {
				t.Errorf("%s: want a level 1 heading first", file)
			}
		})
	}
}

func TestLedgerExamples(t *testing.T) {
	for _, block := range parseMarkdown(t, "ledger.md") {
		txs, diags, err := cryptotax.DecodeTransactions(strings.NewReader(block.Content), "docs")
		if err != nil {
			t.Fatalf("%s:%d: DecodeTransactions() error = %v", block.File, block.Line, err)
		}
		if len(diags) > 0 {
			t.Errorf("%s:%d: DecodeTransactions() diagnostics = %v", block.File, block.Line, diags)
		}
		for _, tx := range txs {
			if err := tx.Validate(); err != nil {
				t.Errorf("%s:%d: transaction %s: Validate() error = %v", block.File, block.Line, tx.ID, err)
			}
		}
	}
}

// HELPER

// Block represents a fenced code block in the markdown file.
type Block struct {
	Content string
	File    string
	Line    int
}

// parseMarkdown returns the jsonl fenced blocks of a markdown file.
func parseMarkdown(t *testing.T, file string) []*Block {
	t.Helper()

	content, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("failed to read %s: %v", file, err)
	}

	root := goldmark.DefaultParser().Parse(text.NewReader(content))

	var blocks []*Block
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok || fcb.Info == nil {
			return ast.WalkContinue, nil
		}
		if string(fcb.Info.Segment.Value(content)) != "jsonl" {
			return ast.WalkContinue, nil
		}
		var blockContent strings.Builder
		for i := 0; i < fcb.Lines().Len(); i++ {
			line := fcb.Lines().At(i)
			blockContent.WriteString(string(line.Value(content)))
		}
		blocks = append(blocks, &Block{
			Content: blockContent.String(),
			File:    file,
			Line:    lineNumber(content, fcb.Info.Segment.Start),
		})
		return ast.WalkContinue, nil
	})
	return blocks
}

// lineNumber computes the lineNumber for a given offset AST offset.
// the markdown parser we use does not support that feature so we
// have to implement it.
func lineNumber(source []byte, offset int) (lineNumber int) {
	return bytes.Count(source[:offset], []byte{'\n'}) + 1
}
