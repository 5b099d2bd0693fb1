//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sourceDirs are the trees that hold project code.
var sourceDirs = []string{"cmd", "internal", "pkg"}

type pkgStats struct {
	Prod  int `json:"prod"`
	Test  int `json:"test"`
	Files int `json:"files"`
}

// Stats prints Go line counts per package, plus totals, as one JSON line.
func Stats() error {
	pkgs := map[string]*pkgStats{}
	for _, root := range sourceDirs {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".go") {
				return nil
			}
			n, err := countLines(path)
			if err != nil {
				return err
			}
			s := pkgs[filepath.Dir(path)]
			if s == nil {
				s = &pkgStats{}
				pkgs[filepath.Dir(path)] = s
			}
			s.Files++
			if strings.HasSuffix(path, "_test.go") {
				s.Test += n
			} else {
				s.Prod += n
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	var total pkgStats
	for _, s := range pkgs {
		total.Prod += s.Prod
		total.Test += s.Test
		total.Files += s.Files
	}

	line, err := json.Marshal(struct {
		Packages map[string]*pkgStats `json:"packages"`
		Total    pkgStats             `json:"total"`
	}{pkgs, total})
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	return n, scanner.Err()
}
