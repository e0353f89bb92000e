// Package docs embeds the ctax user documentation.
//
// Each markdown file is a topic named after its base name. The readme topic
// is the entry point and lists the others.
package docs

import (
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

//go:embed *.md
var files embed.FS

// Index is the topic shown when none is requested.
const Index = "readme"

// Names returns the sorted names of the topics, the index excluded.
func Names() []string {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		// the embedded root always exists
		panic(err)
	}
	var names []string
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".md")
		if !ok || e.IsDir() || name == Index {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Topic returns the markdown of a topic.
func Topic(name string) (string, error) {
	content, err := files.ReadFile(name + ".md")
	if err != nil {
		return "", fmt.Errorf("unknown topic %q", name)
	}
	return string(content), nil
}

// Join returns the markdown of several topics, one after the other. "*"
// stands for every topic but the index.
func Join(names ...string) (string, error) {
	var b strings.Builder
	for _, name := range names {
		expanded := []string{name}
		if name == "*" {
			expanded = Names()
		}
		for _, n := range expanded {
			content, err := Topic(n)
			if err != nil {
				return "", err
			}
			b.WriteString(content)
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}
